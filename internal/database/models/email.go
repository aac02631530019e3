package models

import (
	"time"
)

// BodyFormat classifies which body representations a message carries.
const (
	BodyFormatText = "text"
	BodyFormatHTML = "html"
	BodyFormatBoth = "both"
)

// Priority levels for an email.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Email is the durable record of one fetched message. The pair
// (UID, AccountID) is the sole deduplication key: a UID seen again on a
// later sync updates the existing row instead of creating a new one.
// IsRead is owned by the user and is never overwritten by a sync.
type Email struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AccountID     uint      `gorm:"uniqueIndex:idx_emails_uid_account;index;not null" json:"account_id"`
	UID           string    `gorm:"uniqueIndex:idx_emails_uid_account;size:255;not null" json:"uid"`
	Subject       string    `gorm:"size:500" json:"subject"`
	Sender        string    `gorm:"size:255" json:"sender"`
	Recipients    string    `gorm:"type:text" json:"recipients"` // JSON array stored as string
	Date          time.Time `gorm:"index" json:"date"`
	HasAttachment bool      `gorm:"default:false" json:"has_attachment"`
	Body          string    `gorm:"type:text" json:"body"` // combined/legacy representation
	BodyText      string    `gorm:"type:text" json:"body_text"`
	BodyHTML      string    `gorm:"type:text" json:"body_html"`
	BodyFormat    string    `gorm:"size:10;default:'text'" json:"body_format"`
	SizeBytes     int64     `json:"size_bytes"`
	IsRead        bool      `gorm:"default:false" json:"is_read"`
	Priority      string    `gorm:"size:20;default:'normal'" json:"priority"`
	CreatedAt     time.Time `json:"created_at"`

	// Relations
	Attachments []Attachment `gorm:"foreignKey:EmailID" json:"attachments,omitempty"`
}
