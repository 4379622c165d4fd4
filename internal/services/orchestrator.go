package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"vardhanvasista/fresalyzer/internal/models"
)

// Display labels attached to failed results.
const (
	LabelQuotaExceeded    = "Quota Exceeded"
	LabelQuotaExhausted   = "Quota Exhausted"
	LabelInvalidAPIKey    = "Invalid API Key"
	LabelExtractionFailed = "Extraction Failed"

	modelErrorLabelLength = 30
)

// BatchInput is everything one orchestrator run needs. Resumes and
// JobDescriptions are already extracted; failed extractions are reported
// inline rather than rejected.
type BatchInput struct {
	ID              uuid.UUID
	Mode            models.Mode
	Resumes         []models.Document
	JobDescriptions []models.Document
	// Models is only read by ModeManyModelsVsOne. Empty means every known model.
	Models  []string
	Options models.AnalysisOptions
}

type OrchestratorSettings struct {
	CandidateCooldown time.Duration
	RecruiterCooldown time.Duration
	ModelCooldown     time.Duration
	Retry             RetryPolicy
	DefaultModel      string
}

type Orchestrator interface {
	QuickCheck(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
	Run(ctx context.Context, in BatchInput) (*models.BatchReport, error)
}

type orchestrator struct {
	llm      GeminiService
	prompts  *PromptBuilder
	sleeper  Sleeper
	progress ProgressPublisher
	settings OrchestratorSettings
}

func NewOrchestrator(llm GeminiService, sleeper Sleeper, progress ProgressPublisher, settings OrchestratorSettings) Orchestrator {
	if sleeper == nil {
		sleeper = NewSleeper()
	}
	if progress == nil {
		progress = NewLogProgress()
	}
	if settings.Retry.MaxAttempts == 0 {
		settings.Retry = DefaultRetryPolicy()
	}
	return &orchestrator{
		llm:      llm,
		prompts:  NewPromptBuilder(),
		sleeper:  sleeper,
		progress: progress,
		settings: settings,
	}
}

// QuickCheck runs the full analysis prompt for a single pair.
func (o *orchestrator) QuickCheck(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	if req.Resume.Failed() {
		return nil, fmt.Errorf("resume %s: %w", req.Resume.Name, req.Resume.Err)
	}
	if req.JobDescription.Failed() {
		return nil, fmt.Errorf("job description %s: %w", req.JobDescription.Name, req.JobDescription.Err)
	}

	model := o.modelFor(req.Options)
	prompt := o.prompts.PromptFor(models.ModeQuickCheck, req.Resume, req.JobDescription, req.Options)

	log.Printf("🤖 Quick check of %s against %s", req.Resume.Name, req.JobDescription.Name)
	text, err := o.settings.Retry.Do(ctx, o.sleeper, func(ctx context.Context) (string, error) {
		return o.llm.Generate(ctx, prompt, req.Options.APIKey, model)
	})
	if err != nil {
		return nil, err
	}

	result := &models.AnalysisResult{Name: req.JobDescription.Name, Model: model}
	o.applyResponse(models.ModeQuickCheck, req.Options, result, text)
	return result, nil
}

// Run executes one batch. Calls are strictly sequential. On an invalid API key
// the partial report is returned together with an error wrapping
// ErrBatchAborted.
func (o *orchestrator) Run(ctx context.Context, in BatchInput) (*models.BatchReport, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}

	if err := CheckBatchShape(in.Mode, len(in.Resumes), len(in.JobDescriptions)); err != nil {
		return nil, err
	}

	switch in.Mode {
	case models.ModeQuickCheck:
		return o.runQuickCheck(ctx, in)
	case models.ModeSingleVsMany:
		return o.runPairs(ctx, in, in.Resumes[0], in.JobDescriptions, o.settings.CandidateCooldown)
	case models.ModeManyVsSingle:
		return o.runPairs(ctx, in, in.JobDescriptions[0], in.Resumes, o.settings.RecruiterCooldown)
	default:
		return o.runModels(ctx, in)
	}
}

// CheckBatchShape reports whether a mode can run with the given number of
// resumes and job descriptions.
func CheckBatchShape(mode models.Mode, resumes, jobDescriptions int) error {
	switch mode {
	case models.ModeQuickCheck:
		if resumes != 1 || jobDescriptions != 1 {
			return fmt.Errorf("%w: quick check needs one resume and one job description", ErrInvalidBatch)
		}
	case models.ModeSingleVsMany:
		if resumes != 1 || jobDescriptions == 0 {
			return fmt.Errorf("%w: candidate mode needs one resume and at least one job description", ErrInvalidBatch)
		}
	case models.ModeManyVsSingle:
		if jobDescriptions != 1 || resumes == 0 {
			return fmt.Errorf("%w: recruiter mode needs one job description and at least one resume", ErrInvalidBatch)
		}
	case models.ModeManyModelsVsOne:
		if resumes != 1 || jobDescriptions != 1 {
			return fmt.Errorf("%w: model analyzer needs one resume and one job description", ErrInvalidBatch)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidBatch, mode)
	}
	return nil
}

func (o *orchestrator) runQuickCheck(ctx context.Context, in BatchInput) (*models.BatchReport, error) {
	result, err := o.QuickCheck(ctx, models.AnalysisRequest{
		Resume:         in.Resumes[0],
		JobDescription: in.JobDescriptions[0],
		Options:        in.Options,
	})
	if err != nil {
		return nil, err
	}

	report := models.NewBatchReport(models.ModeQuickCheck, result.Model, in.Resumes[0].Name, []models.AnalysisResult{*result})
	report.ID = in.ID
	return report, nil
}

// runPairs is the fan-out over (fixed, counterpart) document pairs.
func (o *orchestrator) runPairs(ctx context.Context, in BatchInput, fixed models.Document, counterparts []models.Document, cooldown time.Duration) (*models.BatchReport, error) {
	if fixed.Failed() {
		return nil, fmt.Errorf("%s: %w", fixed.Name, fixed.Err)
	}

	model := o.modelFor(in.Options)
	total := len(counterparts)
	o.publish(ctx, in, ProgressEvent{Stage: StageStarted, Total: total})

	results := make([]models.AnalysisResult, 0, total)
	called := false

	for i, doc := range counterparts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := models.AnalysisResult{Index: i, Name: doc.Name, Model: model}

		if doc.Failed() {
			result.SetError(doc.Err, LabelExtractionFailed)
			results = append(results, result)
			o.publishItem(ctx, in, result, total)
			continue
		}

		if called && cooldown > 0 {
			log.Printf("⏳ Cooling down for %s before %s", cooldown, doc.Name)
			if err := o.sleeper.Sleep(ctx, cooldown); err != nil {
				return nil, err
			}
		}
		called = true

		resume, jd := fixed, doc
		if in.Mode == models.ModeManyVsSingle {
			resume, jd = doc, fixed
		}
		prompt := o.prompts.PromptFor(in.Mode, resume, jd, in.Options)

		text, err := o.settings.Retry.Do(ctx, o.sleeper, func(ctx context.Context) (string, error) {
			return o.llm.Generate(ctx, prompt, in.Options.APIKey, model)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			result.SetError(err, errorLabel(err))
			results = append(results, result)
			o.publishItem(ctx, in, result, total)

			if LLMErrorKindOf(err) == LLMInvalidCredentials {
				report := models.NewBatchReport(in.Mode, model, fixed.Name, results)
				report.ID = in.ID
				report.Aborted = true
				report.AbortReason = err.Error()
				o.publish(ctx, in, ProgressEvent{Stage: StageAborted, Index: i, Total: total, Error: err.Error()})
				return report, fmt.Errorf("%w: %w", ErrBatchAborted, err)
			}
			continue
		}

		o.applyResponse(in.Mode, in.Options, &result, text)
		results = append(results, result)
		o.publishItem(ctx, in, result, total)
	}

	report := models.NewBatchReport(in.Mode, model, fixed.Name, results)
	report.ID = in.ID
	o.publish(ctx, in, ProgressEvent{Stage: StageCompleted, Total: total})
	return report, nil
}

// runModels sends the score-only prompt once to every model. Failures score
// zero with a short label and never stop the batch.
func (o *orchestrator) runModels(ctx context.Context, in BatchInput) (*models.BatchReport, error) {
	resume, jd := in.Resumes[0], in.JobDescriptions[0]
	if resume.Failed() {
		return nil, fmt.Errorf("%s: %w", resume.Name, resume.Err)
	}
	if jd.Failed() {
		return nil, fmt.Errorf("%s: %w", jd.Name, jd.Err)
	}

	modelIDs := in.Models
	if len(modelIDs) == 0 {
		modelIDs = models.KnownModels
	}

	total := len(modelIDs)
	prompt := o.prompts.PromptFor(models.ModeManyModelsVsOne, resume, jd, in.Options)
	o.publish(ctx, in, ProgressEvent{Stage: StageStarted, Total: total})

	results := make([]models.AnalysisResult, 0, total)
	for i, modelID := range modelIDs {
		if i > 0 && o.settings.ModelCooldown > 0 {
			if err := o.sleeper.Sleep(ctx, o.settings.ModelCooldown); err != nil {
				return nil, err
			}
		}

		result := models.AnalysisResult{Index: i, Name: modelID, Model: modelID}
		text, err := o.llm.Generate(ctx, prompt, in.Options.APIKey, modelID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.SetError(err, modelErrorLabel(err))
		} else {
			o.applyResponse(models.ModeManyModelsVsOne, in.Options, &result, text)
		}

		results = append(results, result)
		o.publishItem(ctx, in, result, total)
	}

	report := models.NewBatchReport(models.ModeManyModelsVsOne, "", resume.Name+" vs "+jd.Name, results)
	report.ID = in.ID
	o.publish(ctx, in, ProgressEvent{Stage: StageCompleted, Total: total})
	return report, nil
}

func (o *orchestrator) applyResponse(mode models.Mode, opts models.AnalysisOptions, result *models.AnalysisResult, text string) {
	result.RawText = text

	pct := ParsePercentage(text)
	result.Percentage = pct.Value
	result.Parse = pct.Status
	if !pct.Found() {
		log.Printf("⚠️  No usable match percentage for %s (%s)", result.Name, pct.Status)
	}

	switch mode {
	case models.ModeManyVsSingle:
		result.CandidateName = ExtractCandidateName(text)
	case models.ModeQuickCheck:
		result.ResumeCode = ExtractResumeCode(text)
	case models.ModeSingleVsMany:
		if opts.FullAnalysis {
			result.ResumeCode = ExtractResumeCode(text)
		}
	}
}

func (o *orchestrator) modelFor(opts models.AnalysisOptions) string {
	if m := NormalizeModelID(opts.Model); m != "" {
		return m
	}
	return o.settings.DefaultModel
}

func (o *orchestrator) publish(ctx context.Context, in BatchInput, e ProgressEvent) {
	e.RunID = in.ID
	e.Mode = in.Mode
	e.Timestamp = time.Now()
	o.progress.Publish(ctx, e)
}

func (o *orchestrator) publishItem(ctx context.Context, in BatchInput, r models.AnalysisResult, total int) {
	o.publish(ctx, in, ProgressEvent{
		Stage:      StageItem,
		Index:      r.Index,
		Total:      total,
		Name:       r.Name,
		Percentage: r.Percentage,
		Error:      r.ErrorMessage,
	})
}

func errorLabel(err error) string {
	var extractionErr *ExtractionError
	switch {
	case errors.As(err, &extractionErr):
		return LabelExtractionFailed
	case errors.Is(err, ErrQuotaExhausted):
		return LabelQuotaExhausted
	}

	switch LLMErrorKindOf(err) {
	case LLMQuotaExceeded:
		return LabelQuotaExceeded
	case LLMInvalidCredentials:
		return LabelInvalidAPIKey
	}
	return "Error"
}

// modelErrorLabel is the short text shown in place of a model's score.
func modelErrorLabel(err error) string {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		switch llmErr.Kind {
		case LLMQuotaExceeded:
			return LabelQuotaExceeded
		case LLMInvalidCredentials:
			return LabelInvalidAPIKey
		}
		return truncateMessage(llmErr.Message, modelErrorLabelLength)
	}
	return truncateMessage(err.Error(), modelErrorLabelLength)
}
