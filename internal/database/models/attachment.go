package models

import (
	"time"
)

// Attachment records one attachment file written to disk for an email.
// Multiple attachments with the same filename under one email are allowed;
// the pipeline enforces no dedup key beyond (email, filename).
type Attachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EmailID   uint      `gorm:"index;not null" json:"email_id"`
	Filename  string    `gorm:"size:255;not null" json:"filename"`
	FilePath  string    `gorm:"size:500" json:"file_path"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `gorm:"size:100" json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}
