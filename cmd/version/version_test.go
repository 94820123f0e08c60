package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azcost/internal/version"
)

func TestVersionCmd(t *testing.T) {
	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "azcost "+version.String()+"\n", out.String())
}
