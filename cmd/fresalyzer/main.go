// Command fresalyzer matches resumes against job descriptions from the terminal.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vardhanvasista/fresalyzer/internal/config"
	"vardhanvasista/fresalyzer/internal/services"
)

// app holds everything a command needs. Flags are bound onto it so tests can
// build a fresh one per invocation.
type app struct {
	cfg       *config.Config
	extractor services.TextExtractor
	llm       services.GeminiService
	sleeper   services.Sleeper
	progress  services.ProgressPublisher
	out       io.Writer

	apiKey   string
	model    string
	format   string
	length   string
	top      int
	export   string
	codeOut  string
	cooldown time.Duration
	full     bool
	models   []string
}

func newApp(cfg *config.Config, llm services.GeminiService, out io.Writer) *app {
	return &app{
		cfg:       cfg,
		extractor: services.NewTextExtractor(),
		llm:       llm,
		sleeper:   services.NewSleeper(),
		progress:  services.NewLogProgress(),
		out:       out,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "fresalyzer",
		Short:         "Match resumes against job descriptions with Gemini",
		Long:          "fresalyzer scores how well resumes fit job descriptions using a Gemini model, ranks batches and exports shortlists.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.apiKey, "api-key", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	flags.StringVarP(&a.model, "model", "m", "", "Gemini model id (see list-models)")
	flags.StringVar(&a.format, "format", "", "Generated resume format: 'LaTex' or 'HTML and CSS'")
	flags.StringVar(&a.length, "length", "", "Generated resume length: one or multi")
	flags.IntVarP(&a.top, "top", "n", 0, "Only show and export the top N matches (0 = all)")
	flags.StringVarP(&a.export, "export", "e", "", "Write the shortlist to a .csv or .xlsx file")
	flags.StringVar(&a.codeOut, "code-out", "", "Write the generated resume code to this file")
	flags.DurationVar(&a.cooldown, "cooldown", 0, "Pause between calls (overrides the per-mode default)")

	root.AddCommand(
		newQuickCmd(a),
		newCandidateCmd(a),
		newRecruiterCmd(a),
		newModelsCmd(a),
		newListModelsCmd(a),
	)
	return root
}

func main() {
	cfg := config.Load()
	a := newApp(cfg, services.NewGeminiService(cfg.Gemini.DefaultModel, cfg.Gemini.Temperature, cfg.Gemini.MaxOutputTokens), os.Stdout)

	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
