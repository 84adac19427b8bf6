package biz

import (
	"context"
	"errors"
	"sync"

	"github.com/kart-io/persona-assistant/internal/assistant/store"
	"github.com/kart-io/persona-assistant/internal/pkg/codeindex"
	"github.com/kart-io/persona-assistant/pkg/llm"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.EmbedSingle(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeChat struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	systems []string
}

func (f *fakeChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return f.Generate(ctx, "", "")
}

func (f *fakeChat) Generate(_ context.Context, prompt, system string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.systems = append(f.systems, system)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeChat) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeIndex struct {
	mu         sync.Mutex
	candidates []store.Candidate
	err        error
	calls      int
	lastFilter *store.Filter
	lastTopK   int
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, topK int, filter *store.Filter) ([]store.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastFilter = filter
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return append([]store.Candidate(nil), f.candidates...), nil
}

func (f *fakeIndex) Kind() string { return "fake" }

func (f *fakeIndex) Close(context.Context) error { return nil }

func (f *fakeIndex) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCode struct {
	byName    []codeindex.Symbol
	byKeyword []codeindex.Symbol
	version   string
	err       error

	nameQueries    []string
	keywordQueries [][]string
}

func (f *fakeCode) SearchByNameOrContent(_ context.Context, query string, max int) ([]codeindex.Symbol, error) {
	f.nameQueries = append(f.nameQueries, query)
	return limitSymbols(f.byName, max), f.err
}

func (f *fakeCode) SearchByKeywords(_ context.Context, keywords []string, max int) ([]codeindex.Symbol, error) {
	f.keywordQueries = append(f.keywordQueries, keywords)
	return limitSymbols(f.byKeyword, max), f.err
}

func (f *fakeCode) Version(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.version, nil
}

func limitSymbols(s []codeindex.Symbol, max int) []codeindex.Symbol {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

func symbol(file, name string, start, end int) codeindex.Symbol {
	return codeindex.Symbol{
		File:      file,
		Name:      name,
		Kind:      codeindex.KindFunction,
		LineStart: start,
		LineEnd:   end,
		Content:   "def " + name + "():\n    pass",
		Citation:  codeindex.Citation(file, start, end),
	}
}

var errBoom = errors.New("boom")
