package models

import (
	"time"
)

// Tag is a user-defined label attached to emails by classification rules
// or by hand. Unique per (user, name).
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_tags_user_name;index;not null" json:"user_id"`
	Name      string    `gorm:"uniqueIndex:idx_tags_user_name;size:100;not null" json:"name"`
	Color     string    `gorm:"size:20" json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// EmailTag associates a tag with an email. The composite primary key makes
// re-applying an existing association a no-op rather than an error.
type EmailTag struct {
	EmailID   uint      `gorm:"primaryKey" json:"email_id"`
	TagID     uint      `gorm:"primaryKey" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}
