package models

import (
	"time"
)

// RuleType selects which part of a message a rule is evaluated against.
type RuleType string

const (
	RuleTypeSender  RuleType = "sender"
	RuleTypeSubject RuleType = "subject"
	RuleTypeBody    RuleType = "body"
	RuleTypeDomain  RuleType = "domain" // the part of the sender after '@'
)

// IsValid checks if the rule type is valid.
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeSender, RuleTypeSubject, RuleTypeBody, RuleTypeDomain:
		return true
	}
	return false
}

// RuleOperator is the comparison a rule applies.
type RuleOperator string

const (
	OperatorContains   RuleOperator = "contains"
	OperatorEquals     RuleOperator = "equals"
	OperatorStartsWith RuleOperator = "starts_with"
	OperatorEndsWith   RuleOperator = "ends_with"
	OperatorRegex      RuleOperator = "regex"
)

// IsValid checks if the operator is valid.
func (o RuleOperator) IsValid() bool {
	switch o {
	case OperatorContains, OperatorEquals, OperatorStartsWith, OperatorEndsWith, OperatorRegex:
		return true
	}
	return false
}

// Rule is a user-defined classification rule. Enabled rules are evaluated
// against every ingested message in descending priority order; a message may
// collect tags from several matching rules.
type Rule struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	UserID          uint         `gorm:"index;not null" json:"user_id"`
	RuleType        RuleType     `gorm:"size:20;not null" json:"rule_type"`
	Operator        RuleOperator `gorm:"size:20;not null" json:"operator"`
	Value           string       `gorm:"size:500;not null" json:"value"`
	TagID           uint         `gorm:"index;not null" json:"tag_id"`
	Enabled         bool         `gorm:"default:true" json:"enabled"`
	Priority        int          `gorm:"default:0" json:"priority"`
	SaveAttachments bool         `gorm:"default:false" json:"save_attachments"`
	AttachmentPath  string       `gorm:"size:500" json:"attachment_path"`
	CreatedAt       time.Time    `json:"created_at"`

	// Relations
	Tag *Tag `gorm:"foreignKey:TagID" json:"tag,omitempty"`
}
