package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"vardhanvasista/fresalyzer/internal/models"
	"vardhanvasista/fresalyzer/internal/repositories"
	"vardhanvasista/fresalyzer/internal/services"
)

type RunHandler struct {
	runRepo       repositories.RunRepository
	uploadRepo    repositories.UploadRepository
	worker        services.Worker
	exportStore   services.ObjectStore
	defaultAPIKey string
	defaultModel  string
	validate      *validator.Validate
}

// NewRunHandler wires the run endpoints. exportStore may be nil, in which
// case exports are only returned to the caller.
func NewRunHandler(
	runRepo repositories.RunRepository,
	uploadRepo repositories.UploadRepository,
	worker services.Worker,
	exportStore services.ObjectStore,
	defaultAPIKey string,
	defaultModel string,
) *RunHandler {
	return &RunHandler{
		runRepo:       runRepo,
		uploadRepo:    uploadRepo,
		worker:        worker,
		exportStore:   exportStore,
		defaultAPIKey: defaultAPIKey,
		defaultModel:  defaultModel,
		validate:      newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// HandleCreateRun handles POST /runs
func (h *RunHandler) HandleCreateRun(c *fiber.Ctx) error {
	var req models.CreateRunRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validationMessage(err),
		})
	}

	if err := services.CheckBatchShape(req.Mode, len(req.ResumeIDs), len(req.JobDescriptionIDs)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if req.Model != "" && !models.IsKnownModel(services.NormalizeModelID(req.Model)) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Unknown model %q", req.Model),
		})
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = h.defaultAPIKey
	}
	if apiKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "api_key is required",
		})
	}

	resumeIDs, err := h.checkUploads(req.ResumeIDs, models.RoleResume)
	if err != nil {
		return uploadLookupError(c, err)
	}
	jdIDs, err := h.checkUploads(req.JobDescriptionIDs, models.RoleJobDescription)
	if err != nil {
		return uploadLookupError(c, err)
	}

	model := services.NormalizeModelID(req.Model)
	if model == "" && req.Mode != models.ModeManyModelsVsOne {
		model = h.defaultModel
	}

	run := &models.Run{
		ID:        uuid.New(),
		Mode:      req.Mode,
		Model:     model,
		Status:    models.StatusQueued,
		TopN:      req.TopN,
		ItemCount: itemCount(req.Mode, len(resumeIDs), len(jdIDs)),
	}

	if err := h.runRepo.Create(run); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create run",
		})
	}

	job := services.RunJob{
		RunID:             run.ID,
		Mode:              req.Mode,
		ResumeIDs:         resumeIDs,
		JobDescriptionIDs: jdIDs,
		Options: models.AnalysisOptions{
			Model:        model,
			APIKey:       apiKey,
			Format:       req.Format,
			Length:       req.Length,
			TopN:         req.TopN,
			FullAnalysis: req.FullAnalysis,
		},
	}

	if err := h.worker.EnqueueJob(job); err != nil {
		if updateErr := h.runRepo.UpdateError(run.ID, fmt.Sprintf("Failed to enqueue run: %v", err)); updateErr != nil {
			log.Printf("❌ Failed to record enqueue error for run %s: %v\n", run.ID, updateErr)
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Run queue is unavailable, try again later",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.RunResponse{
		ID:     run.ID.String(),
		Status: string(models.StatusQueued),
	})
}

// HandleGetRun handles GET /runs/:id
func (h *RunHandler) HandleGetRun(c *fiber.Ctx) error {
	run, status, msg := h.findRun(c)
	if run == nil {
		return c.Status(status).JSON(fiber.Map{
			"error": msg,
		})
	}

	response := models.RunDetailResponse{
		ID:           run.ID.String(),
		Mode:         string(run.Mode),
		Model:        run.Model,
		Status:       string(run.Status),
		ErrorMessage: run.ErrorMessage,
	}

	report, err := decodeReport(run)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Stored report is unreadable",
		})
	}
	if report != nil {
		response.Report = report
		response.Shortlist = report.Shortlist(run.TopN)
	}

	return c.JSON(response)
}

// HandleExport handles GET /runs/:id/export?format=csv|xlsx&top=N
func (h *RunHandler) HandleExport(c *fiber.Ctx) error {
	run, status, msg := h.findRun(c)
	if run == nil {
		return c.Status(status).JSON(fiber.Map{
			"error": msg,
		})
	}

	format, err := services.ParseExportFormat(c.Query("format", string(services.ExportCSV)))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	top := c.QueryInt("top", run.TopN)
	if top < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "top must not be negative",
		})
	}

	report, err := decodeReport(run)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Stored report is unreadable",
		})
	}
	if report == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fmt.Sprintf("Run is %s, nothing to export yet", run.Status),
		})
	}

	var buf bytes.Buffer
	if err := services.WriteShortlist(&buf, format, services.ShortlistRows(report, top)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to export shortlist: %v", err),
		})
	}

	filename := fmt.Sprintf("shortlist_%s%s", run.ID, format.Extension())

	if h.exportStore != nil {
		location, err := h.exportStore.Put(c.UserContext(), "exports/"+filename, format.ContentType(), buf.Bytes())
		if err != nil {
			log.Printf("⚠️  Failed to archive export for run %s: %v\n", run.ID, err)
		} else {
			c.Set("X-Export-Location", location)
		}
	}

	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

func (h *RunHandler) findRun(c *fiber.Ctx) (*models.Run, int, string) {
	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.StatusBadRequest, "Invalid run ID format"
	}

	run, err := h.runRepo.FindByID(runID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fiber.StatusNotFound, "Run not found"
		}
		return nil, fiber.StatusInternalServerError, "Failed to load run"
	}
	return run, fiber.StatusOK, ""
}

// checkUploads parses ids and confirms each upload exists with the given role.
func (h *RunHandler) checkUploads(raw []string, role models.DocumentRole) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid upload id %q", s)
		}
		ids = append(ids, id)
	}

	uploads, err := h.uploadRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	for _, up := range uploads {
		if up.Role != role {
			return nil, fmt.Errorf("upload %s is a %s, expected a %s", up.ID, up.Role, role)
		}
	}
	return ids, nil
}

func uploadLookupError(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	if errors.Is(err, repositories.ErrNotFound) {
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// decodeReport returns nil when the run has not produced a report yet.
func decodeReport(run *models.Run) (*models.BatchReport, error) {
	if run.Report == nil || *run.Report == "" {
		return nil, nil
	}
	var report models.BatchReport
	if err := json.Unmarshal([]byte(*run.Report), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func itemCount(mode models.Mode, resumes, jobDescriptions int) int {
	switch mode {
	case models.ModeSingleVsMany:
		return jobDescriptions
	case models.ModeManyVsSingle:
		return resumes
	case models.ModeManyModelsVsOne:
		return len(models.KnownModels)
	}
	return 1
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("%s must contain valid ids", fe.Namespace()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
