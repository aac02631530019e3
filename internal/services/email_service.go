package services

import (
	"errors"

	"github.com/maildeck/core/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrEmailNotFound indicates the email was not found
	ErrEmailNotFound = errors.New("email not found")
)

// EmailService exposes stored mail to the dashboard: listing, detail and the
// user-owned read flag that the ingestion engine must never overwrite.
type EmailService struct {
	db *gorm.DB
}

// NewEmailService creates a new EmailService instance
func NewEmailService(db *gorm.DB) *EmailService {
	return &EmailService{db: db}
}

// ListEmailsInput filters an email listing
type ListEmailsInput struct {
	AccountID uint
	TagID     uint // 0 = no tag filter
	Unread    bool // only unread
	Limit     int
	Offset    int
}

// ListEmails returns emails for an account, newest first
func (s *EmailService) ListEmails(userID uint, input ListEmailsInput) ([]models.Email, error) {
	if input.Limit <= 0 || input.Limit > 500 {
		input.Limit = 50
	}

	query := s.db.
		Joins("JOIN accounts ON accounts.id = emails.account_id").
		Where("accounts.user_id = ?", userID)

	if input.AccountID != 0 {
		query = query.Where("emails.account_id = ?", input.AccountID)
	}
	if input.TagID != 0 {
		query = query.
			Joins("JOIN email_tags ON email_tags.email_id = emails.id").
			Where("email_tags.tag_id = ?", input.TagID)
	}
	if input.Unread {
		query = query.Where("emails.is_read = ?", false)
	}

	var emails []models.Email
	err := query.
		Order("emails.date DESC").
		Limit(input.Limit).
		Offset(input.Offset).
		Find(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// GetEmailByIDAndUserID retrieves an email by ID, verifying ownership
// through the owning account.
func (s *EmailService) GetEmailByIDAndUserID(id, userID uint) (*models.Email, error) {
	var email models.Email
	err := s.db.
		Preload("Attachments").
		Joins("JOIN accounts ON accounts.id = emails.account_id").
		Where("emails.id = ? AND accounts.user_id = ?", id, userID).
		First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, err
	}
	return &email, nil
}

// SetReadStatus sets the user-owned read flag on an email
func (s *EmailService) SetReadStatus(id, userID uint, read bool) error {
	email, err := s.GetEmailByIDAndUserID(id, userID)
	if err != nil {
		return err
	}
	return s.db.Model(email).Update("is_read", read).Error
}

// CountEmails returns the number of stored emails for an account
func (s *EmailService) CountEmails(accountID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Email{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}
