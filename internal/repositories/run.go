package repositories

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vardhanvasista/fresalyzer/internal/models"
)

type RunRepository interface {
	Create(run *models.Run) error
	FindByID(id uuid.UUID) (*models.Run, error)
	UpdateStatus(id uuid.UUID, status models.RunStatus) error
	UpdateResult(id uuid.UUID, report string) error
	UpdateError(id uuid.UUID, errorMsg string) error
	// FindUnfinished returns queued or processing runs, oldest first.
	FindUnfinished(limit int) ([]models.Run, error)
}

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(run *models.Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (r *runRepository) FindByID(id uuid.UUID) (*models.Run, error) {
	var run models.Run
	if err := r.db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return &run, nil
}

func (r *runRepository) UpdateStatus(id uuid.UUID, status models.RunStatus) error {
	return r.update(id, "status", map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
}

func (r *runRepository) UpdateResult(id uuid.UUID, report string) error {
	return r.update(id, "result", map[string]interface{}{
		"status":     models.StatusCompleted,
		"report":     report,
		"updated_at": time.Now(),
	})
}

func (r *runRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	return r.update(id, "error", map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": errorMsg,
		"updated_at":    time.Now(),
	})
}

func (r *runRepository) update(id uuid.UUID, what string, updates map[string]interface{}) error {
	result := r.db.Model(&models.Run{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", what, result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r *runRepository) FindUnfinished(limit int) ([]models.Run, error) {
	var runs []models.Run
	err := r.db.
		Where("status IN ?", []models.RunStatus{models.StatusQueued, models.StatusProcessing}).
		Order("created_at ASC").
		Limit(limit).
		Find(&runs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find unfinished runs: %w", err)
	}

	return runs, nil
}

type memoryRunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]models.Run
}

// NewMemoryRunRepository keeps runs for the life of the process.
func NewMemoryRunRepository() RunRepository {
	return &memoryRunRepository{runs: make(map[uuid.UUID]models.Run)}
}

func (m *memoryRunRepository) Create(run *models.Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := time.Now()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = models.StatusQueued
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runs[run.ID]; exists {
		return fmt.Errorf("failed to create run: duplicate id %s", run.ID)
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *memoryRunRepository) FindByID(id uuid.UUID) (*models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return &run, nil
}

func (m *memoryRunRepository) UpdateStatus(id uuid.UUID, status models.RunStatus) error {
	return m.modify(id, func(run *models.Run) {
		run.Status = status
	})
}

func (m *memoryRunRepository) UpdateResult(id uuid.UUID, report string) error {
	return m.modify(id, func(run *models.Run) {
		run.Status = models.StatusCompleted
		run.Report = &report
	})
}

func (m *memoryRunRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	return m.modify(id, func(run *models.Run) {
		run.Status = models.StatusFailed
		run.ErrorMessage = &errorMsg
	})
}

func (m *memoryRunRepository) modify(id uuid.UUID, fn func(run *models.Run)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	fn(&run)
	run.UpdatedAt = time.Now()
	m.runs[id] = run
	return nil
}

func (m *memoryRunRepository) FindUnfinished(limit int) ([]models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var runs []models.Run
	for _, run := range m.runs {
		if run.Status == models.StatusQueued || run.Status == models.StatusProcessing {
			runs = append(runs, run)
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
