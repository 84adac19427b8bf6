package redis

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRedactsPassword(t *testing.T) {
	opts := NewOptions()
	opts.Password = "supersecret"

	s := opts.String()
	assert.NotContains(t, s, "supersecret")
	assert.Contains(t, s, "[REDACTED]")

	opts.Password = ""
	assert.NotContains(t, opts.String(), "[REDACTED]")
}

func TestCompleteReadsPasswordFromEnv(t *testing.T) {
	t.Setenv(PasswordEnv, "from-env")

	opts := NewOptions()
	require.NoError(t, opts.Complete())
	assert.Equal(t, "from-env", opts.Password)

	opts.Password = "explicit"
	require.NoError(t, opts.Complete())
	assert.Equal(t, "explicit", opts.Password)
}

func TestValidate(t *testing.T) {
	assert.Empty(t, NewOptions().Validate())

	opts := NewOptions()
	opts.Host = ""
	opts.Port = 70000
	opts.Database = -1
	assert.Len(t, opts.Validate(), 3)
}

func TestAddFlagsWithPrefix(t *testing.T) {
	opts := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs, "memory")

	require.NoError(t, fs.Parse([]string{"--memory.redis.port=6390"}))
	assert.Equal(t, 6390, opts.Port)
	assert.Equal(t, "127.0.0.1:6390", opts.Addr())
	assert.Nil(t, fs.Lookup("memory.redis.password"))
}
