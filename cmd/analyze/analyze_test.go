package analyze

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azcost/internal/app"
	"azcost/internal/cli"
	"azcost/internal/cli/clitest"
	"azcost/internal/config"
)

func TestApplyOverrides(t *testing.T) {
	cfg := config.Defaults()

	out := applyOverrides(cfg, &analyzeOptions{model: "llama3", ollamaHost: "http://gpu:11434", backend: "ollama", topN: 7})
	assert.Equal(t, "llama3", out.AIModel)
	assert.Equal(t, "http://gpu:11434", out.OllamaHost)
	assert.Equal(t, "ollama", out.AIBackend)
	assert.Equal(t, 7, out.TopN)
	assert.Equal(t, "tinyllama", cfg.AIModel, "loaded config must not change")

	same := applyOverrides(cfg, &analyzeOptions{})
	assert.Equal(t, cfg, same)
}

func TestAnalyzeCmd(t *testing.T) {
	cfg := config.Defaults()
	cfg.Demo = true
	cfg.AIBackend = "ollama-cli"
	config.Config = cfg
	t.Cleanup(func() {
		config.Config = config.Defaults()
		app.Overrides = nil
	})

	tests := []struct {
		name   string
		args   []string
		runner *clitest.Fake
		want   []string
	}{
		{
			name: "prints analysis",
			args: []string{"--model", "phi3"},
			runner: &clitest.Fake{Responses: map[string]string{
				"ollama list":     "NAME ID SIZE MODIFIED\nphi3:latest a 2GB now\n",
				"ollama run phi3": "Right-size the web app plan.\n",
			}},
			want: []string{"DEMO DATA", "Web Apps", "AI analysis (phi3):", "Right-size the web app plan."},
		},
		{
			name:   "reports unavailable backend",
			runner: &clitest.Fake{Errors: map[string]error{"ollama list": cli.ErrNotFound}},
			want:   []string{"AI analysis unavailable", "ollama pull tinyllama"},
		},
		{
			name:   "shows prompt",
			args:   []string{"--show-prompt", "--top-n", "2"},
			runner: &clitest.Fake{Errors: map[string]error{"ollama list": cli.ErrNotFound}},
			want:   []string{"Prompt:", "You are an Azure cloud cost optimization expert.", "Total Cost: 338.85 USD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.Overrides = []app.Option{app.WithRunner(tt.runner), app.WithSpinner(false)}

			cmd := NewAnalyzeCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)
			require.NoError(t, cmd.Execute())
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}
