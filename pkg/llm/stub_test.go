package llm

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestStubEmbeddingDeterministic(t *testing.T) {
	ctx := context.Background()
	p := NewStubEmbeddingProvider(64)

	a, err := p.EmbedSingle(ctx, "Retrieval augmented generation")
	require.NoError(t, err)
	b, err := NewStubEmbeddingProvider(64).EmbedSingle(ctx, "Retrieval augmented generation")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, cosine(a, b), 1e-6)
}

func TestStubEmbeddingSimilarity(t *testing.T) {
	ctx := context.Background()
	p := NewStubEmbeddingProvider(0)
	assert.Equal(t, DefaultStubDimension, p.Dimension())

	vecs, err := p.Embed(ctx, []string{
		"built a vector retrieval pipeline",
		"the vector retrieval pipeline",
		"enjoys hiking on weekends",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestStubEmbeddingEmptyText(t *testing.T) {
	v, err := NewStubEmbeddingProvider(16).EmbedSingle(context.Background(), "  ")
	require.NoError(t, err)
	assert.Len(t, v, 16)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestStubGenerateEchoesTail(t *testing.T) {
	words := make([]string, 100)
	for i := range words {
		words[i] = "w" + string(rune('a'+i%26))
	}
	words[99] = "LAST"
	words[60] = "FIRSTKEPT"

	out, err := NewStubChatProvider().Generate(context.Background(), strings.Join(words, " "), "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, StubAnswerPrefix))
	body := strings.TrimPrefix(out, StubAnswerPrefix)
	assert.Len(t, strings.Fields(body), 40)
	assert.True(t, strings.HasPrefix(body, "FIRSTKEPT"))
	assert.True(t, strings.HasSuffix(body, "LAST"))
}

func TestStubChatUsesLastMessage(t *testing.T) {
	out, err := NewStubChatProvider().Chat(context.Background(), []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleUser, Content: "second question"},
	})
	require.NoError(t, err)
	assert.Equal(t, StubAnswerPrefix+"second question", out)
}
