package analyze

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"azcost/internal/app"
	"azcost/internal/config"
	"azcost/internal/costs"
	"azcost/internal/llm"
	"azcost/internal/output"
)

type analyzeOptions struct {
	model      string
	ollamaHost string
	backend    string
	topN       int
	showPrompt bool
}

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Ask a local language model for cost optimization advice",
		Long: `Summarize the current costs into a prompt and send it to a local model
through Ollama. When no model backend is available the costs are still
shown and the command reports that AI analysis is unavailable.`,
		Example: `  # Analyze with the default model
  azcost analyze

  # Use another model and print the prompt that is sent
  azcost analyze --model llama3 --show-prompt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.model, "model", "", "Model name (default from ai.model)")
	cmd.Flags().StringVar(&opts.ollamaHost, "ollama-host", "", "Ollama API base URL (default from ai.ollama_host)")
	cmd.Flags().StringVar(&opts.backend, "ai-backend", "", "Backend: auto, ollama or ollama-cli (default from ai.backend)")
	cmd.Flags().IntVar(&opts.topN, "top-n", 0, "Categories and resources included in the prompt (default from ai.top_n)")
	cmd.Flags().BoolVar(&opts.showPrompt, "show-prompt", false, "Print the prompt before the analysis")

	return cmd
}

// applyOverrides copies non-empty flag values over the loaded configuration
func applyOverrides(cfg *config.GlobalConfig, opts *analyzeOptions) *config.GlobalConfig {
	out := *cfg
	if opts.model != "" {
		out.AIModel = opts.model
	}
	if opts.ollamaHost != "" {
		out.OllamaHost = opts.ollamaHost
	}
	if opts.backend != "" {
		out.AIBackend = opts.backend
	}
	if opts.topN > 0 {
		out.TopN = opts.topN
	}
	return &out
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	a := app.ForCommand(cmd)
	a.Config = applyOverrides(a.Config, opts)

	snapshot, err := a.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	out := a.Stdout
	fmt.Fprintln(out, output.Banner(snapshot))
	fmt.Fprint(out, output.RenderSummary(costs.Summarize(snapshot), snapshot.Currency))

	if opts.showPrompt {
		prompt := costs.BuildAnalysisPrompt(snapshot, costs.Summarize(snapshot), a.PromptOptions())
		fmt.Fprintf(out, "\n%s\n%s\n", color.CyanString("Prompt:"), prompt)
	}

	fmt.Fprintf(out, "\n%s\n", color.New(color.Bold).Sprintf("AI analysis (%s):", a.Config.AIModel))
	analysis, err := a.Analyze(cmd.Context(), snapshot)
	if err != nil {
		if errors.Is(err, llm.ErrInferenceUnavailable) {
			fmt.Fprintln(out, color.YellowString("AI analysis unavailable: %v", err))
			fmt.Fprintf(out, "Install Ollama and run: ollama pull %s\n", a.Config.AIModel)
			return nil
		}
		return err
	}

	fmt.Fprintln(out, analysis)
	return nil
}
