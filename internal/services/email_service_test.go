package services

import (
	"testing"
	"time"

	"github.com/maildeck/core/internal/database/models"
)

func seedMailbox(t *testing.T) (*EmailService, *TagService, models.Account, []models.Email) {
	t.Helper()
	db := newTestDB(t)
	emailService := NewEmailService(db)
	tagService := NewTagService(db)

	account := models.Account{UserID: 1, Email: "a@b.c", IMAPHost: "h", IMAPPort: 993, Username: "a@b.c", Enabled: true}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	emails := []models.Email{
		{AccountID: account.ID, UID: "1", Subject: "oldest", Sender: "x@y.z", Date: base},
		{AccountID: account.ID, UID: "2", Subject: "middle", Sender: "x@y.z", Date: base.Add(time.Hour)},
		{AccountID: account.ID, UID: "3", Subject: "newest", Sender: "x@y.z", Date: base.Add(2 * time.Hour), IsRead: true},
	}
	for i := range emails {
		if err := db.Create(&emails[i]).Error; err != nil {
			t.Fatalf("create email: %v", err)
		}
	}
	return emailService, tagService, account, emails
}

func TestListEmailsNewestFirst(t *testing.T) {
	emailService, _, account, _ := seedMailbox(t)

	list, err := emailService.ListEmails(1, ListEmailsInput{AccountID: account.ID})
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].Subject != "newest" || list[2].Subject != "oldest" {
		t.Errorf("order = %s..%s, want newest..oldest", list[0].Subject, list[2].Subject)
	}
}

func TestListEmailsUnreadFilter(t *testing.T) {
	emailService, _, account, _ := seedMailbox(t)

	list, err := emailService.ListEmails(1, ListEmailsInput{AccountID: account.ID, Unread: true})
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("unread = %d, want 2", len(list))
	}
	for _, e := range list {
		if e.IsRead {
			t.Errorf("email %s is read, expected unread only", e.UID)
		}
	}
}

func TestListEmailsTagFilter(t *testing.T) {
	emailService, tagService, account, emails := seedMailbox(t)

	tag, err := tagService.CreateTag(1, "Work", "")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := tagService.AttachTag(emails[1].ID, tag.ID); err != nil {
		t.Fatalf("AttachTag: %v", err)
	}

	list, err := emailService.ListEmails(1, ListEmailsInput{AccountID: account.ID, TagID: tag.ID})
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(list) != 1 || list[0].UID != "2" {
		t.Errorf("tagged list = %+v, want only uid 2", list)
	}
}

func TestListEmailsEnforcesOwnership(t *testing.T) {
	emailService, _, account, _ := seedMailbox(t)

	list, err := emailService.ListEmails(99, ListEmailsInput{AccountID: account.ID})
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("foreign user sees %d emails, want 0", len(list))
	}
}

func TestSetReadStatus(t *testing.T) {
	emailService, _, _, emails := seedMailbox(t)

	if err := emailService.SetReadStatus(emails[0].ID, 1, true); err != nil {
		t.Fatalf("SetReadStatus: %v", err)
	}

	email, err := emailService.GetEmailByIDAndUserID(emails[0].ID, 1)
	if err != nil {
		t.Fatalf("GetEmailByIDAndUserID: %v", err)
	}
	if !email.IsRead {
		t.Error("read flag not set")
	}

	if err := emailService.SetReadStatus(emails[0].ID, 99, true); err != ErrEmailNotFound {
		t.Errorf("foreign user err = %v, want ErrEmailNotFound", err)
	}
}

func TestCountEmails(t *testing.T) {
	emailService, _, account, _ := seedMailbox(t)

	count, err := emailService.CountEmails(account.ID)
	if err != nil {
		t.Fatalf("CountEmails: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}
