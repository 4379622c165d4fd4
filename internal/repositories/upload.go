package repositories

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vardhanvasista/fresalyzer/internal/models"
)

type UploadRepository interface {
	Create(upload *models.Upload) error
	FindByID(id uuid.UUID) (*models.Upload, error)
	// FindByIDs returns uploads in the order of ids and fails if any is missing.
	FindByIDs(ids []uuid.UUID) ([]models.Upload, error)
}

type uploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

// Create implements UploadRepository.
func (u *uploadRepository) Create(upload *models.Upload) error {
	if upload.ID == uuid.Nil {
		upload.ID = uuid.New()
	}
	if err := u.db.Create(upload).Error; err != nil {
		return fmt.Errorf("failed to create upload: %w", err)
	}

	return nil
}

// FindByID implements UploadRepository.
func (u *uploadRepository) FindByID(id uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	if err := u.db.Where("id = ?", id).First(&upload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("upload %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("failed to find upload: %w", err)
	}

	return &upload, nil
}

// FindByIDs implements UploadRepository.
func (u *uploadRepository) FindByIDs(ids []uuid.UUID) ([]models.Upload, error) {
	var uploads []models.Upload
	if err := u.db.Where("id IN ?", ids).Find(&uploads).Error; err != nil {
		return nil, fmt.Errorf("failed to find uploads: %w", err)
	}

	byID := make(map[uuid.UUID]models.Upload, len(uploads))
	for _, up := range uploads {
		byID[up.ID] = up
	}
	return orderUploads(ids, byID)
}

type memoryUploadRepository struct {
	mu      sync.RWMutex
	uploads map[uuid.UUID]models.Upload
}

// NewMemoryUploadRepository keeps uploads for the life of the process.
func NewMemoryUploadRepository() UploadRepository {
	return &memoryUploadRepository{uploads: make(map[uuid.UUID]models.Upload)}
}

func (m *memoryUploadRepository) Create(upload *models.Upload) error {
	if upload.ID == uuid.Nil {
		upload.ID = uuid.New()
	}
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.uploads[upload.ID]; exists {
		return fmt.Errorf("failed to create upload: duplicate id %s", upload.ID)
	}
	m.uploads[upload.ID] = *upload
	return nil
}

func (m *memoryUploadRepository) FindByID(id uuid.UUID) (*models.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	upload, ok := m.uploads[id]
	if !ok {
		return nil, fmt.Errorf("upload %s: %w", id, ErrNotFound)
	}
	return &upload, nil
}

func (m *memoryUploadRepository) FindByIDs(ids []uuid.UUID) ([]models.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return orderUploads(ids, m.uploads)
}

func orderUploads(ids []uuid.UUID, byID map[uuid.UUID]models.Upload) ([]models.Upload, error) {
	out := make([]models.Upload, 0, len(ids))
	for _, id := range ids {
		upload, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("upload %s: %w", id, ErrNotFound)
		}
		out = append(out, upload)
	}
	return out, nil
}
