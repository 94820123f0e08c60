package portal

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azcost/internal/app"
	"azcost/internal/cli/clitest"
	"azcost/internal/config"
	"azcost/internal/costs"
)

func demoSnapshot() *costs.Snapshot {
	return &costs.Snapshot{Records: costs.DemoRecords("USD"), Source: costs.SourceDemo, Currency: "USD"}
}

func TestURLForRank(t *testing.T) {
	snapshot := demoSnapshot()

	record, url, err := URLForRank(snapshot, 1, "portal.azure.com")
	require.NoError(t, err)
	assert.Equal(t, "mywebapp", record.ResourceName)
	assert.Equal(t, "https://portal.azure.com/#@/resource/subscriptions/12345678-1234-1234-1234-123456789012/resourceGroups/rg-webapp/providers/Microsoft.Web/sites/mywebapp", url)

	for _, rank := range []int{0, -1, 9} {
		_, _, err := URLForRank(snapshot, rank, "")
		assert.ErrorIs(t, err, costs.ErrInvalidInput, "rank %d", rank)
	}

	snapshot.Records[0].ResourceID = "Unknown"
	_, _, err = URLForRank(snapshot, 1, "")
	assert.ErrorIs(t, err, costs.ErrInvalidInput)
}

func TestOpenCommand(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
		wantArgs []string
	}{
		{"darwin", "open", []string{"https://x"}},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", "https://x"}},
		{"linux", "xdg-open", []string{"https://x"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args := OpenCommand(tt.goos, "https://x")
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestPortalCmd(t *testing.T) {
	cfg := config.Defaults()
	cfg.Demo = true
	cfg.PortalHost = "portal.azure.cn"
	config.Config = cfg
	t.Cleanup(func() { config.Config = config.Defaults() })

	const storageURL = "https://portal.azure.cn/#@/resource/subscriptions/12345678-1234-1234-1234-123456789012/resourceGroups/rg-storage/providers/Microsoft.Storage/storageAccounts/mystorageaccount"
	name, args := OpenCommand(runtime.GOOS, storageURL)
	parts := append([]string{name}, args...)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	runner := &clitest.Fake{Responses: map[string]string{strings.Join(parts, " "): ""}}
	app.Overrides = []app.Option{app.WithRunner(runner), app.WithSpinner(false)}
	t.Cleanup(func() { app.Overrides = nil })

	t.Run("print only", func(t *testing.T) {
		cmd := NewPortalCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"2", "--print"})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, storageURL+"\n", out.String())
	})

	t.Run("opens browser", func(t *testing.T) {
		cmd := NewPortalCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"2"})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "Opening mystorageaccount")
		assert.NotContains(t, out.String(), "Could not open")
		calls := runner.Calls()
		require.NotEmpty(t, calls)
		assert.Equal(t, name, calls[len(calls)-1].Name)
	})

	t.Run("invalid rank", func(t *testing.T) {
		cmd := NewPortalCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"first"})
		assert.ErrorContains(t, cmd.Execute(), "must be a number")

		cmd.SetArgs([]string{"42"})
		assert.ErrorIs(t, cmd.Execute(), costs.ErrInvalidInput)
	})
}
