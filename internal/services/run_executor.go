package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"vardhanvasista/fresalyzer/internal/models"
	"vardhanvasista/fresalyzer/internal/repositories"
)

// RunJob is a queued dashboard run. It carries the API key in memory only;
// the key is never written to the run repository.
type RunJob struct {
	RunID             uuid.UUID
	Mode              models.Mode
	ResumeIDs         []uuid.UUID
	JobDescriptionIDs []uuid.UUID
	Options           models.AnalysisOptions
}

type RunExecutor interface {
	Execute(ctx context.Context, job RunJob) error
}

type runExecutor struct {
	runRepo      repositories.RunRepository
	uploadRepo   repositories.UploadRepository
	extractor    TextExtractor
	orchestrator Orchestrator
}

func NewRunExecutor(
	runRepo repositories.RunRepository,
	uploadRepo repositories.UploadRepository,
	extractor TextExtractor,
	orchestrator Orchestrator,
) RunExecutor {
	return &runExecutor{
		runRepo:      runRepo,
		uploadRepo:   uploadRepo,
		extractor:    extractor,
		orchestrator: orchestrator,
	}
}

func (e *runExecutor) Execute(ctx context.Context, job RunJob) error {
	if err := e.runRepo.UpdateStatus(job.RunID, models.StatusProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	log.Printf("🔄 Starting %s run %s", job.Mode, job.RunID)

	resumes, err := e.loadDocuments(job.ResumeIDs)
	if err != nil {
		e.fail(job.RunID, fmt.Sprintf("Failed to load resumes: %v", err))
		return err
	}

	jobDescriptions, err := e.loadDocuments(job.JobDescriptionIDs)
	if err != nil {
		e.fail(job.RunID, fmt.Sprintf("Failed to load job descriptions: %v", err))
		return err
	}

	report, runErr := e.orchestrator.Run(ctx, BatchInput{
		ID:              job.RunID,
		Mode:            job.Mode,
		Resumes:         resumes,
		JobDescriptions: jobDescriptions,
		Options:         job.Options,
	})

	if report != nil {
		encoded, err := json.Marshal(report)
		if err != nil {
			e.fail(job.RunID, fmt.Sprintf("Failed to encode report: %v", err))
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := e.runRepo.UpdateResult(job.RunID, string(encoded)); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}
	}

	if runErr != nil {
		msg := runErr.Error()
		if errors.Is(runErr, ErrBatchAborted) {
			msg = fmt.Sprintf("%s: %s", LabelInvalidAPIKey, runErr)
		}
		e.fail(job.RunID, msg)
		return runErr
	}

	log.Printf("✅ Run %s completed", job.RunID)
	return nil
}

// loadDocuments extracts every upload. Extraction failures stay on the
// returned Documents; only missing uploads are an error.
func (e *runExecutor) loadDocuments(ids []uuid.UUID) ([]models.Document, error) {
	uploads, err := e.uploadRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(uploads))
	for _, upload := range uploads {
		doc := e.extractor.LoadFile(upload.FilePath)
		doc.Name = upload.OriginalFileName
		docs = append(docs, doc)
	}
	return docs, nil
}

func (e *runExecutor) fail(id uuid.UUID, msg string) {
	if err := e.runRepo.UpdateError(id, msg); err != nil {
		log.Printf("❌ Failed to record error for run %s: %v", id, err)
	}
}
