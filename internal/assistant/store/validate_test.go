package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocuments(t *testing.T) {
	tests := []struct {
		name    string
		docs    []*Document
		wantErr string
	}{
		{
			name: "valid",
			docs: []*Document{
				{ID: "1", Content: "a", Source: "s", Tags: []string{"career"}, Embedding: []float32{1, 0}},
				{ID: "2", Content: "b", Source: "s"},
				{ID: "3", Content: "c", Source: "s", Embedding: []float32{0, 1}},
			},
		},
		{name: "blank content", docs: []*Document{{ID: "1", Content: "  ", Source: "s"}}, wantErr: "Content"},
		{name: "missing source", docs: []*Document{{ID: "1", Content: "a"}}, wantErr: "Source"},
		{name: "blank tag", docs: []*Document{{ID: "1", Content: "a", Source: "s", Tags: []string{""}}}, wantErr: "Tags"},
		{name: "null entry", docs: []*Document{nil}, wantErr: "null"},
		{
			name: "duplicate id",
			docs: []*Document{
				{ID: "1", Content: "a", Source: "s"},
				{ID: "1", Content: "b", Source: "s"},
			},
			wantErr: "duplicate",
		},
		{
			name: "mixed dimensions",
			docs: []*Document{
				{ID: "1", Content: "a", Source: "s", Embedding: []float32{1, 0}},
				{ID: "2", Content: "b", Source: "s", Embedding: []float32{1, 0, 0}},
			},
			wantErr: "dimension",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocuments(tt.docs)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMemoryIndexRejectsInvalidCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"1","content":"","source":"s"}]`), 0o600))

	_, err := LoadMemoryIndex(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid corpus")
}

func TestSaveCorpusRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	docs := []*Document{{ID: "1", Content: "a", Source: "s", Embedding: []float32{0.25, 0.75}}}

	require.NoError(t, SaveCorpus(path, docs))
	idx, err := LoadMemoryIndex(path)
	require.NoError(t, err)
	require.Len(t, idx.Documents(), 1)
	assert.Equal(t, []float32{0.25, 0.75}, idx.Documents()[0].Embedding)
}
