package json

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type session struct {
	ID      string  `json:"session_id"`
	History []turn  `json:"chat_history"`
	Score   float64 `json:"score,omitempty"`
}

func TestBackendSelection(t *testing.T) {
	want := runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
	assert.Equal(t, want, IsUsingSonic())
}

func TestMarshalUnmarshal(t *testing.T) {
	in := session{ID: "s1", History: []turn{{Role: "user", Content: "hi <there> & you"}}}

	data, err := Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session_id":"s1"`)

	var out session
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(map[string]int{"a": 1}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(data))
}

func TestUnmarshalInvalid(t *testing.T) {
	var out session
	assert.Error(t, Unmarshal([]byte("{not json"), &out))
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(turn{Role: "assistant", Content: "ok"}))

	var out turn
	require.NoError(t, NewDecoder(&buf).Decode(&out))
	assert.Equal(t, "assistant", out.Role)
	assert.Equal(t, "ok", out.Content)
}
