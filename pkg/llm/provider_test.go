package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider 模拟供应商实现，用于测试。
type mockProvider struct {
	name string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{0.1, 0.2, 0.3}
	}
	return result, nil
}

func (m *mockProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "mock response", nil
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ string) (string, error) {
	return "mock generated text", nil
}

func TestRegistryFullProvider(t *testing.T) {
	RegisterProvider("test-full", func(config map[string]any) (Provider, error) {
		name, _ := config["name"].(string)
		return &mockProvider{name: name}, nil
	})

	emb, err := NewEmbeddingProvider("test-full", map[string]any{"name": "emb"})
	require.NoError(t, err)
	assert.Equal(t, "emb", emb.Name())

	chat, err := NewChatProvider("test-full", map[string]any{"name": "chat"})
	require.NoError(t, err)
	assert.Equal(t, "chat", chat.Name())
}

func TestRegistryDedicatedFactoryWins(t *testing.T) {
	RegisterProvider("test-split", func(map[string]any) (Provider, error) {
		return &mockProvider{name: "full"}, nil
	})
	RegisterChatProvider("test-split", func(map[string]any) (ChatProvider, error) {
		return &mockProvider{name: "dedicated"}, nil
	})

	chat, err := NewChatProvider("test-split", nil)
	require.NoError(t, err)
	assert.Equal(t, "dedicated", chat.Name())

	emb, err := NewEmbeddingProvider("test-split", nil)
	require.NoError(t, err)
	assert.Equal(t, "full", emb.Name())
}

func TestRegistryUnknown(t *testing.T) {
	_, err := NewEmbeddingProvider("does-not-exist", nil)
	assert.Error(t, err)
	_, err = NewChatProvider("does-not-exist", nil)
	assert.Error(t, err)
}

func TestRegistryFactoryError(t *testing.T) {
	RegisterEmbeddingProvider("test-broken", func(map[string]any) (EmbeddingProvider, error) {
		return nil, errors.New("missing credential")
	})
	_, err := NewEmbeddingProvider("test-broken", nil)
	assert.EqualError(t, err, "missing credential")
}

func TestListProvidersIncludesStub(t *testing.T) {
	names := ListProviders()
	assert.Contains(t, names, StubProviderName)
	assert.IsNonDecreasing(t, names)
}

func TestIsDegraded(t *testing.T) {
	assert.True(t, IsDegraded(NewStubChatProvider()))
	assert.True(t, IsDegraded(NewStubEmbeddingProvider(8)))
	assert.False(t, IsDegraded(&mockProvider{}))
	assert.False(t, IsDegraded(nil))
}

func TestRegistryUnknownListsRegistered(t *testing.T) {
	_, err := NewChatProvider("does-not-exist", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"does-not-exist"`)
	assert.Contains(t, err.Error(), StubProviderName)
}
