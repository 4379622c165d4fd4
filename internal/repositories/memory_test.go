package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vardhanvasista/fresalyzer/internal/models"
)

func TestMemoryUploadRepository(t *testing.T) {
	repo := NewMemoryUploadRepository()

	a := &models.Upload{OriginalFileName: "a.pdf", Role: models.RoleResume}
	b := &models.Upload{OriginalFileName: "b.txt", Role: models.RoleJobDescription}
	require.NoError(t, repo.Create(a))
	require.NoError(t, repo.Create(b))
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	found, err := repo.FindByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.txt", found.OriginalFileName)

	ordered, err := repo.FindByIDs([]uuid.UUID{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, "b.txt", ordered[0].OriginalFileName)
	assert.Equal(t, "a.pdf", ordered[1].OriginalFileName)

	_, err = repo.FindByIDs([]uuid.UUID{a.ID, uuid.New()})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.FindByID(uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Error(t, repo.Create(&models.Upload{ID: a.ID}), "duplicate ids are rejected")
}

func TestMemoryRunRepository_Lifecycle(t *testing.T) {
	repo := NewMemoryRunRepository()

	run := &models.Run{Mode: models.ModeManyVsSingle, Model: "gemini-2.0-flash", TopN: 3}
	require.NoError(t, repo.Create(run))
	assert.Equal(t, models.StatusQueued, run.Status)

	require.NoError(t, repo.UpdateStatus(run.ID, models.StatusProcessing))
	got, err := repo.FindByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)

	require.NoError(t, repo.UpdateResult(run.ID, `{"mode":"many_vs_single"}`))
	got, err = repo.FindByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.Report)
	assert.JSONEq(t, `{"mode":"many_vs_single"}`, *got.Report)

	// Callers get copies.
	got.Status = models.StatusFailed
	again, _ := repo.FindByID(run.ID)
	assert.Equal(t, models.StatusCompleted, again.Status)

	assert.True(t, errors.Is(repo.UpdateStatus(uuid.New(), models.StatusFailed), ErrNotFound))
}

func TestMemoryRunRepository_FindUnfinished(t *testing.T) {
	repo := NewMemoryRunRepository()
	base := time.Now().Add(-time.Hour)

	older := &models.Run{Mode: models.ModeSingleVsMany, CreatedAt: base}
	newer := &models.Run{Mode: models.ModeSingleVsMany, CreatedAt: base.Add(time.Minute), Status: models.StatusProcessing}
	done := &models.Run{Mode: models.ModeSingleVsMany, CreatedAt: base.Add(-time.Minute)}
	for _, r := range []*models.Run{newer, done, older} {
		require.NoError(t, repo.Create(r))
	}
	require.NoError(t, repo.UpdateError(done.ID, "Invalid API Key"))

	runs, err := repo.FindUnfinished(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, older.ID, runs[0].ID)
	assert.Equal(t, newer.ID, runs[1].ID)

	runs, err = repo.FindUnfinished(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	failed, _ := repo.FindByID(done.ID)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "Invalid API Key", *failed.ErrorMessage)
}
