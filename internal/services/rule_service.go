package services

import (
	"errors"

	"github.com/maildeck/core/internal/database/models"
	"github.com/maildeck/core/internal/rules"
	"gorm.io/gorm"
)

var (
	// ErrRuleNotFound indicates the rule was not found
	ErrRuleNotFound = errors.New("rule not found")
	// ErrInvalidRuleData indicates invalid rule data
	ErrInvalidRuleData = errors.New("invalid rule data")
)

// RuleService handles classification rule business logic
type RuleService struct {
	db         *gorm.DB
	logService *LogService
}

// NewRuleService creates a new RuleService instance
func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{
		db:         db,
		logService: NewLogService(db),
	}
}

// CreateRuleInput represents the input for creating a classification rule
type CreateRuleInput struct {
	UserID          uint
	RuleType        models.RuleType
	Operator        models.RuleOperator
	Value           string
	TagID           uint
	Priority        int
	SaveAttachments bool
	AttachmentPath  string
}

// CreateRule creates a new classification rule for a user
func (s *RuleService) CreateRule(input CreateRuleInput) (*models.Rule, error) {
	if !input.RuleType.IsValid() || !input.Operator.IsValid() || input.Value == "" || input.TagID == 0 {
		return nil, ErrInvalidRuleData
	}

	rule := &models.Rule{
		UserID:          input.UserID,
		RuleType:        input.RuleType,
		Operator:        input.Operator,
		Value:           input.Value,
		TagID:           input.TagID,
		Enabled:         true,
		Priority:        input.Priority,
		SaveAttachments: input.SaveAttachments,
		AttachmentPath:  input.AttachmentPath,
	}
	if err := s.db.Create(rule).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(input.UserID, models.LogModuleRules, "create", "Classification rule created", map[string]interface{}{
		"rule_id":   rule.ID,
		"rule_type": rule.RuleType,
		"operator":  rule.Operator,
	})

	return rule, nil
}

// GetRuleByIDAndUserID retrieves a rule by ID and user ID
func (s *RuleService) GetRuleByIDAndUserID(id, userID uint) (*models.Rule, error) {
	var rule models.Rule
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// GetRulesByUserID retrieves all rules for a user, highest priority first
func (s *RuleService) GetRulesByUserID(userID uint) ([]models.Rule, error) {
	var ruleList []models.Rule
	if err := s.db.Where("user_id = ?", userID).Order("priority DESC, id").Find(&ruleList).Error; err != nil {
		return nil, err
	}
	return ruleList, nil
}

// GetEnabledRulesByUserID retrieves enabled rules for a user, highest
// priority first. This is the evaluation order used during ingestion.
func (s *RuleService) GetEnabledRulesByUserID(userID uint) ([]models.Rule, error) {
	var ruleList []models.Rule
	if err := s.db.Where("user_id = ? AND enabled = ?", userID, true).Order("priority DESC, id").Find(&ruleList).Error; err != nil {
		return nil, err
	}
	return ruleList, nil
}

// SetRuleEnabled sets the enabled status of a rule
func (s *RuleService) SetRuleEnabled(id, userID uint, enabled bool) (*models.Rule, error) {
	rule, err := s.GetRuleByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled
	if err := s.db.Save(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule deletes a rule
func (s *RuleService) DeleteRule(id, userID uint) error {
	rule, err := s.GetRuleByIDAndUserID(id, userID)
	if err != nil {
		return err
	}
	return s.db.Delete(rule).Error
}

// ApplyRulesToStored evaluates all enabled rules against every stored email
// of one account and attaches matching tags. This lets a newly created rule
// take effect on existing mail without waiting for the next sync. Returns
// the number of new tag associations created.
func (s *RuleService) ApplyRulesToStored(userID, accountID uint) (int, error) {
	ruleList, err := s.GetEnabledRulesByUserID(userID)
	if err != nil {
		return 0, err
	}
	if len(ruleList) == 0 {
		return 0, nil
	}

	var emails []models.Email
	if err := s.db.Where("account_id = ?", accountID).Find(&emails).Error; err != nil {
		return 0, err
	}

	tagged := 0
	for i := range emails {
		email := &emails[i]
		for j := range ruleList {
			rule := &ruleList[j]
			if !rules.Matches(rule, email.Sender, email.Subject, email.Body) {
				continue
			}

			var existing models.EmailTag
			err := s.db.Where("email_id = ? AND tag_id = ?", email.ID, rule.TagID).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return tagged, err
			}
			if err := s.db.Create(&models.EmailTag{EmailID: email.ID, TagID: rule.TagID}).Error; err != nil {
				return tagged, err
			}
			tagged++
		}
	}

	if tagged > 0 {
		s.logService.LogInfo(userID, models.LogModuleRules, "apply_stored", "Rules applied to stored mail", map[string]interface{}{
			"account_id": accountID,
			"tagged":     tagged,
		})
	}

	return tagged, nil
}
