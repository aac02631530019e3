package services

import (
	"testing"
	"time"

	"github.com/maildeck/core/internal/database/models"
)

func TestApplyRulesToStored(t *testing.T) {
	db := newTestDB(t)
	ruleService := NewRuleService(db)
	tagService := NewTagService(db)

	account := models.Account{
		UserID:   1,
		Email:    "alice@example.com",
		IMAPHost: "imap.example.com",
		IMAPPort: 993,
		Username: "alice@example.com",
		Enabled:  true,
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}

	emails := []models.Email{
		{AccountID: account.ID, UID: "1", Sender: "boss@corp.com", Subject: "Q3 numbers", Body: "see attached", Date: time.Now()},
		{AccountID: account.ID, UID: "2", Sender: "news@letter.io", Subject: "Weekly digest", Body: "hello", Date: time.Now()},
		{AccountID: account.ID, UID: "3", Sender: "hr@corp.com", Subject: "Holiday schedule", Body: "dates inside", Date: time.Now()},
	}
	for i := range emails {
		if err := db.Create(&emails[i]).Error; err != nil {
			t.Fatalf("create email: %v", err)
		}
	}

	workTag, err := tagService.CreateTag(1, "Work", "#ff0000")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	if _, err := ruleService.CreateRule(CreateRuleInput{
		UserID:   1,
		RuleType: models.RuleTypeDomain,
		Operator: models.OperatorEquals,
		Value:    "corp.com",
		TagID:    workTag.ID,
	}); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	tagged, err := ruleService.ApplyRulesToStored(1, account.ID)
	if err != nil {
		t.Fatalf("ApplyRulesToStored: %v", err)
	}
	if tagged != 2 {
		t.Errorf("tagged = %d, want 2", tagged)
	}

	tags, err := tagService.GetTagsForEmail(emails[0].ID)
	if err != nil {
		t.Fatalf("GetTagsForEmail: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "Work" {
		t.Errorf("tags for corp mail = %+v, want [Work]", tags)
	}

	tags, err = tagService.GetTagsForEmail(emails[1].ID)
	if err != nil {
		t.Fatalf("GetTagsForEmail: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("newsletter should carry no tags, got %+v", tags)
	}

	// Second application must be idempotent
	tagged, err = ruleService.ApplyRulesToStored(1, account.ID)
	if err != nil {
		t.Fatalf("ApplyRulesToStored (second): %v", err)
	}
	if tagged != 0 {
		t.Errorf("second run tagged = %d, want 0", tagged)
	}
}

func TestApplyRulesToStoredSkipsDisabledRules(t *testing.T) {
	db := newTestDB(t)
	ruleService := NewRuleService(db)
	tagService := NewTagService(db)

	account := models.Account{UserID: 1, Email: "a@b.c", IMAPHost: "h", IMAPPort: 993, Username: "a@b.c", Enabled: true}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	email := models.Email{AccountID: account.ID, UID: "1", Sender: "x@corp.com", Subject: "s", Body: "b", Date: time.Now()}
	if err := db.Create(&email).Error; err != nil {
		t.Fatalf("create email: %v", err)
	}

	tag, err := tagService.CreateTag(1, "Work", "")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	rule, err := ruleService.CreateRule(CreateRuleInput{
		UserID:   1,
		RuleType: models.RuleTypeDomain,
		Operator: models.OperatorEquals,
		Value:    "corp.com",
		TagID:    tag.ID,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if _, err := ruleService.SetRuleEnabled(rule.ID, 1, false); err != nil {
		t.Fatalf("SetRuleEnabled: %v", err)
	}

	tagged, err := ruleService.ApplyRulesToStored(1, account.ID)
	if err != nil {
		t.Fatalf("ApplyRulesToStored: %v", err)
	}
	if tagged != 0 {
		t.Errorf("tagged = %d, want 0 with the rule disabled", tagged)
	}
}

func TestCreateRuleValidation(t *testing.T) {
	db := newTestDB(t)
	ruleService := NewRuleService(db)

	if _, err := ruleService.CreateRule(CreateRuleInput{
		UserID:   1,
		RuleType: models.RuleType("bogus"),
		Operator: models.OperatorContains,
		Value:    "x",
		TagID:    1,
	}); err != ErrInvalidRuleData {
		t.Errorf("invalid type err = %v, want ErrInvalidRuleData", err)
	}

	if _, err := ruleService.CreateRule(CreateRuleInput{
		UserID:   1,
		RuleType: models.RuleTypeSubject,
		Operator: models.OperatorContains,
		Value:    "",
		TagID:    1,
	}); err != ErrInvalidRuleData {
		t.Errorf("empty value err = %v, want ErrInvalidRuleData", err)
	}
}

func TestGetEnabledRulesOrder(t *testing.T) {
	db := newTestDB(t)
	ruleService := NewRuleService(db)
	tagService := NewTagService(db)

	tag, err := tagService.CreateTag(1, "T", "")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	for _, prio := range []int{1, 10, 5} {
		if _, err := ruleService.CreateRule(CreateRuleInput{
			UserID:   1,
			RuleType: models.RuleTypeSubject,
			Operator: models.OperatorContains,
			Value:    "x",
			TagID:    tag.ID,
			Priority: prio,
		}); err != nil {
			t.Fatalf("CreateRule: %v", err)
		}
	}

	ruleList, err := ruleService.GetEnabledRulesByUserID(1)
	if err != nil {
		t.Fatalf("GetEnabledRulesByUserID: %v", err)
	}
	if len(ruleList) != 3 {
		t.Fatalf("len = %d, want 3", len(ruleList))
	}
	if ruleList[0].Priority != 10 || ruleList[1].Priority != 5 || ruleList[2].Priority != 1 {
		t.Errorf("priorities = %d,%d,%d, want 10,5,1", ruleList[0].Priority, ruleList[1].Priority, ruleList[2].Priority)
	}
}
