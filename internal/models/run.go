package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Run tracks one batch submitted through the dashboard. Report holds the
// JSON-encoded BatchReport once the run completes.
type Run struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Mode         Mode      `gorm:"type:text;not null" json:"mode"`
	Model        string    `gorm:"type:text" json:"model"`
	Status       RunStatus `gorm:"not null;default:'queued'" json:"status"`
	TopN         int       `json:"top_n"`
	ItemCount    int       `json:"item_count"`
	Report       *string   `gorm:"type:jsonb" json:"-"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Run) TableName() string {
	return "runs"
}
