package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"vardhanvasista/fresalyzer/internal/models"
	"vardhanvasista/fresalyzer/internal/repositories"
	"vardhanvasista/fresalyzer/internal/services"
)

// Multipart field names accepted by POST /upload. Each may carry several files.
const (
	fieldResume         = "resume"
	fieldJobDescription = "job_description"
)

type UploadHandler struct {
	uploadRepo     repositories.UploadRepository
	storageService services.StorageService
	maxFileSize    int64
}

func NewUploadHandler(
	uploadRepo repositories.UploadRepository,
	storageService services.StorageService,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		uploadRepo:     uploadRepo,
		storageService: storageService,
		maxFileSize:    maxFileSize,
	}
}

func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	responses := []models.UploadResponse{}

	for _, field := range []struct {
		name string
		role models.DocumentRole
	}{
		{fieldResume, models.RoleResume},
		{fieldJobDescription, models.RoleJobDescription},
	} {
		for _, file := range form.File[field.name] {
			resp, status, err := h.saveUpload(file, field.role)
			if err != nil {
				// Files saved before the failure stay usable; report them.
				return c.Status(status).JSON(fiber.Map{
					"error":     err.Error(),
					"documents": responses,
				})
			}
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No files uploaded. Please upload 'resume' and/or 'job_description' files (PDF, DOCX or TXT).",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Files uploaded successfully",
		"documents": responses,
	})
}

func (h *UploadHandler) saveUpload(file *multipart.FileHeader, role models.DocumentRole) (models.UploadResponse, int, error) {
	if h.maxFileSize > 0 && file.Size > h.maxFileSize {
		return models.UploadResponse{}, fiber.StatusBadRequest,
			fmt.Errorf("%s is too large. Max size: %d bytes", file.Filename, h.maxFileSize)
	}

	filename, filePath, err := h.storageService.SaveFile(file, role)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedFormat) {
			return models.UploadResponse{}, fiber.StatusBadRequest, err
		}
		return models.UploadResponse{}, fiber.StatusInternalServerError,
			fmt.Errorf("failed to save %s: %v", file.Filename, err)
	}

	upload := models.Upload{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		Role:             role,
		FilePath:         filePath,
		SizeBytes:        file.Size,
		CreatedAt:        time.Now(),
	}

	if err := h.uploadRepo.Create(&upload); err != nil {
		// Cleanup uploaded file if the record could not be saved
		h.storageService.DeleteFile(filename)
		return models.UploadResponse{}, fiber.StatusInternalServerError,
			fmt.Errorf("failed to save upload record for %s", file.Filename)
	}

	return models.UploadResponse{
		ID:           upload.ID.String(),
		Filename:     upload.Filename,
		OriginalName: upload.OriginalFileName,
		Role:         string(upload.Role),
	}, fiber.StatusCreated, nil
}
