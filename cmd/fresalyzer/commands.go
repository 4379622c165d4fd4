package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vardhanvasista/fresalyzer/internal/models"
	"vardhanvasista/fresalyzer/internal/services"
)

func newQuickCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quick <resume> <job-description>",
		Short: "Full analysis of one resume against one job description",
		Long:  "Runs the full analysis prompt: match percentage, missing skills, a suggested template and generated resume code.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}

			resume, err := a.loadRequired(args[0])
			if err != nil {
				return err
			}
			jd, err := a.loadRequired(args[1])
			if err != nil {
				return err
			}

			result, err := a.orchestrator(cmd).QuickCheck(cmd.Context(), models.AnalysisRequest{
				Resume:         resume,
				JobDescription: jd,
				Options:        opts,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, strings.TrimSpace(result.RawText))
			fmt.Fprintln(a.out)
			fmt.Fprintf(a.out, "Match: %s\n", formatScore(*result))

			return a.writeCode(result.ResumeCode)
		},
	}
}

func newCandidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidate <resume> <job-description>...",
		Short: "Rank job descriptions for one resume",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, models.ModeSingleVsMany, args[:1], args[1:])
		},
	}
	cmd.Flags().BoolVar(&a.full, "full", false, "Ask for the full analysis for every job description")
	return cmd
}

func newRecruiterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recruiter <job-description> <resume>...",
		Short: "Rank resumes for one job description",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, models.ModeManyVsSingle, args[1:], args[:1])
		},
	}
}

func newModelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models <resume> <job-description>",
		Short: "Score one pair with every known model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, m := range a.models {
				if !models.IsKnownModel(services.NormalizeModelID(m)) {
					return fmt.Errorf("unknown model %q (see list-models)", m)
				}
			}
			return a.runBatch(cmd, models.ModeManyModelsVsOne, args[:1], args[1:])
		},
	}
	cmd.Flags().StringSliceVar(&a.models, "only", nil, "Restrict to these model ids")
	return cmd
}

func newListModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-models",
		Short: "List known models with their reference accuracy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range models.KnownModels {
				fmt.Fprintf(a.out, "%-40s %3d%%\n", id, models.ReferenceAccuracy[id])
			}
			return nil
		},
	}
}

func (a *app) runBatch(cmd *cobra.Command, mode models.Mode, resumePaths, jdPaths []string) error {
	opts, err := a.options()
	if err != nil {
		return err
	}
	opts.FullAnalysis = a.full

	in := services.BatchInput{
		Mode:            mode,
		Resumes:         a.load(resumePaths),
		JobDescriptions: a.load(jdPaths),
		Models:          normalizeModels(a.models),
		Options:         opts,
	}

	report, runErr := a.orchestrator(cmd).Run(cmd.Context(), in)
	if report != nil {
		a.printReport(report)
		if err := a.exportShortlist(report); err != nil {
			return err
		}
		if mode == models.ModeSingleVsMany && report.Best != nil {
			if err := a.writeCode(report.Best.ResumeCode); err != nil {
				return err
			}
		}
	}

	if errors.Is(runErr, services.ErrBatchAborted) {
		return fmt.Errorf("stopped early, check your API key: %w", runErr)
	}
	return runErr
}

// options resolves flags into per-run options. The key falls back to the
// environment and must be present.
func (a *app) options() (models.AnalysisOptions, error) {
	key := strings.TrimSpace(a.apiKey)
	if key == "" {
		key = a.cfg.Gemini.APIKey
	}
	if key == "" {
		return models.AnalysisOptions{}, errors.New("no API key: pass --api-key or set GEMINI_API_KEY")
	}

	model := services.NormalizeModelID(a.model)
	if model != "" && !models.IsKnownModel(model) {
		return models.AnalysisOptions{}, fmt.Errorf("unknown model %q (see list-models)", a.model)
	}

	switch a.format {
	case "", models.FormatLaTeX, models.FormatHTMLCSS:
	default:
		return models.AnalysisOptions{}, fmt.Errorf("unknown format %q: use %q or %q", a.format, models.FormatLaTeX, models.FormatHTMLCSS)
	}
	switch a.length {
	case "", models.LengthOne, models.LengthMulti:
	default:
		return models.AnalysisOptions{}, fmt.Errorf("unknown length %q: use %s or %s", a.length, models.LengthOne, models.LengthMulti)
	}

	if a.top < 0 {
		return models.AnalysisOptions{}, errors.New("--top must not be negative")
	}

	if a.export != "" {
		if _, err := services.ParseExportFormat(a.export); err != nil {
			return models.AnalysisOptions{}, err
		}
	}

	return models.AnalysisOptions{
		Model:  model,
		APIKey: key,
		Format: a.format,
		Length: a.length,
		TopN:   a.top,
	}, nil
}

func (a *app) orchestrator(cmd *cobra.Command) services.Orchestrator {
	settings := services.OrchestratorSettings{
		CandidateCooldown: a.cfg.Batch.CandidateCooldown,
		RecruiterCooldown: a.cfg.Batch.RecruiterCooldown,
		ModelCooldown:     a.cfg.Batch.ModelCooldown,
		DefaultModel:      a.cfg.Gemini.DefaultModel,
		Retry: services.RetryPolicy{
			MaxAttempts: a.cfg.Batch.RetryMaxAttempts,
			BaseDelay:   a.cfg.Batch.RetryBaseDelay,
			FinalDelay:  a.cfg.Batch.RetryFinalDelay,
		},
	}
	if f := cmd.Flag("cooldown"); f != nil && f.Changed {
		settings.CandidateCooldown = a.cooldown
		settings.RecruiterCooldown = a.cooldown
		settings.ModelCooldown = a.cooldown
	}
	return services.NewOrchestrator(a.llm, a.sleeper, a.progress, settings)
}

// load extracts every path. Failures stay on the documents and are reported
// inline by the batch.
func (a *app) load(paths []string) []models.Document {
	docs := make([]models.Document, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, a.extractor.LoadFile(p))
	}
	return docs
}

func (a *app) loadRequired(path string) (models.Document, error) {
	doc := a.extractor.LoadFile(path)
	if doc.Failed() {
		return doc, doc.Err
	}
	return doc, nil
}

func (a *app) writeCode(code string) error {
	if a.codeOut == "" || code == "" {
		return nil
	}
	if err := os.WriteFile(a.codeOut, []byte(code+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write resume code to %s: %w", a.codeOut, err)
	}
	fmt.Fprintf(a.out, "Resume code written to %s\n", a.codeOut)
	return nil
}

func normalizeModels(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, services.NormalizeModelID(id))
	}
	return out
}
