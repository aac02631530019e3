package models

import (
	"time"
)

// User represents a dashboard user. Accounts, tags and rules are user-owned.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Accounts []Account `gorm:"foreignKey:UserID" json:"accounts,omitempty"`
}
