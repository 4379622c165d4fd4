package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentRole string

const (
	RoleResume         DocumentRole = "resume"
	RoleJobDescription DocumentRole = "job_description"
)

// Document is a file reduced to plain text. Err is set when extraction failed,
// in which case Text is empty.
type Document struct {
	Name string
	Text string
	Err  error
}

func (d Document) Failed() bool {
	return d.Err != nil
}

// Upload is an uploaded file kept on disk until a run consumes it.
type Upload struct {
	ID               uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Filename         string       `gorm:"type:text" json:"filename"`
	OriginalFileName string       `gorm:"type:text" json:"original_filename"`
	Role             DocumentRole `gorm:"type:text" json:"role"`
	FilePath         string       `gorm:"type:text" json:"file_path"`
	SizeBytes        int64        `json:"size_bytes"`
	CreatedAt        time.Time    `gorm:"type:timestamp;default:now()" json:"created_at"`
}

func (u *Upload) TableName() string {
	return "uploads"
}
