package cliflag

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func TestFlagSetKeepsOrder(t *testing.T) {
	var nfs NamedFlagSets
	nfs.FlagSet("retrieval").Int("top-k", 4, "")
	nfs.FlagSet("generic").String("name", "", "")
	nfs.FlagSet("retrieval").Float64("threshold", 0.3, "")

	assert.Equal(t, []string{"retrieval", "generic"}, nfs.Order)
	assert.NotNil(t, nfs.FlagSets["retrieval"].Lookup("threshold"))

	fs := pflag.NewFlagSet("root", pflag.ContinueOnError)
	nfs.AddTo(fs)
	assert.NotNil(t, fs.Lookup("top-k"))
	assert.NotNil(t, fs.Lookup("name"))
}

func TestPrintSections(t *testing.T) {
	var nfs NamedFlagSets
	nfs.FlagSet("retrieval").Int("top-k", 4, "Number of candidates.")
	nfs.FlagSet("empty")

	var buf bytes.Buffer
	PrintSections(&buf, nfs, 0)

	assert.Contains(t, buf.String(), "Retrieval flags:")
	assert.Contains(t, buf.String(), "--top-k")
	assert.NotContains(t, buf.String(), "Empty flags:")
}
