package services

import (
	"errors"

	"github.com/maildeck/core/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrTagNotFound indicates the tag was not found
	ErrTagNotFound = errors.New("tag not found")
	// ErrTagAlreadyExists indicates a tag with this name already exists for the user
	ErrTagAlreadyExists = errors.New("tag already exists for this user")
	// ErrInvalidTagData indicates invalid tag data
	ErrInvalidTagData = errors.New("invalid tag data")
)

// TagService handles tag business logic
type TagService struct {
	db *gorm.DB
}

// NewTagService creates a new TagService instance
func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

// CreateTag creates a new tag for a user
func (s *TagService) CreateTag(userID uint, name, color string) (*models.Tag, error) {
	if name == "" {
		return nil, ErrInvalidTagData
	}

	var existing models.Tag
	if err := s.db.Where("user_id = ? AND name = ?", userID, name).First(&existing).Error; err == nil {
		return nil, ErrTagAlreadyExists
	}

	tag := &models.Tag{
		UserID: userID,
		Name:   name,
		Color:  color,
	}
	if err := s.db.Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

// GetTagByIDAndUserID retrieves a tag by ID and user ID
func (s *TagService) GetTagByIDAndUserID(id, userID uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

// GetTagsByUserID retrieves all tags for a user
func (s *TagService) GetTagsByUserID(userID uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.Where("user_id = ?", userID).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// DeleteTag deletes a tag and all of its email associations
func (s *TagService) DeleteTag(id, userID uint) error {
	tag, err := s.GetTagByIDAndUserID(id, userID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", tag.ID).Delete(&models.EmailTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(tag).Error
	})
}

// AttachTag associates a tag with an email. Re-applying an existing
// association is a no-op, not an error.
func (s *TagService) AttachTag(emailID, tagID uint) error {
	return AttachTagTx(s.db, emailID, tagID)
}

// AttachTagTx associates a tag with an email inside the given transaction.
func AttachTagTx(tx *gorm.DB, emailID, tagID uint) error {
	var existing models.EmailTag
	err := tx.Where("email_id = ? AND tag_id = ?", emailID, tagID).First(&existing).Error
	if err == nil {
		return nil // already associated
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(&models.EmailTag{EmailID: emailID, TagID: tagID}).Error
}

// DetachTag removes a tag association from an email
func (s *TagService) DetachTag(emailID, tagID uint) error {
	return s.db.Where("email_id = ? AND tag_id = ?", emailID, tagID).Delete(&models.EmailTag{}).Error
}

// GetTagsForEmail retrieves all tags attached to an email
func (s *TagService) GetTagsForEmail(emailID uint) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.
		Joins("JOIN email_tags ON email_tags.tag_id = tags.id").
		Where("email_tags.email_id = ?", emailID).
		Order("tags.name").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}
