package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maildeck/core/internal/database/models"
	"github.com/maildeck/core/internal/mailparse"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"", "attachment.bin"},
		{"../../etc/passwd", "passwd"},
		{`inv:oice*2024?.pdf`, "inv_oice_2024_.pdf"},
		{"path/to/file.txt", "file.txt"},
		{"/abs/path/doc.txt", "doc.txt"},
		{"dir/..", "attachment.bin"},
		{"..", "attachment.bin"},
		{"süß.txt", "süß.txt"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAttachmentPersisterSave(t *testing.T) {
	env := newTestEnv(t)
	persister := NewAttachmentPersister(env.logService)

	email := models.Email{AccountID: env.account.ID, UID: "1", Subject: "s"}
	if err := env.db.Create(&email).Error; err != nil {
		t.Fatalf("create email: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "nested", "dir")
	saved := persister.Save(env.db, 1, email.ID, dir, []mailparse.Attachment{
		{Filename: "a.pdf", MimeType: "application/pdf", Content: []byte("AAA")},
		{Filename: "b.png", MimeType: "image/png", Content: []byte("BBBB")},
	})

	if len(saved) != 2 {
		t.Fatalf("saved = %d, want 2", len(saved))
	}

	for _, record := range saved {
		data, err := os.ReadFile(record.FilePath)
		if err != nil {
			t.Errorf("attachment file missing: %v", err)
			continue
		}
		if int64(len(data)) != record.FileSize {
			t.Errorf("FileSize = %d, file has %d bytes", record.FileSize, len(data))
		}
	}

	var count int64
	env.db.Model(&models.Attachment{}).Where("email_id = ?", email.ID).Count(&count)
	if count != 2 {
		t.Errorf("attachment rows = %d, want 2", count)
	}
}

func TestAttachmentPersisterSaveEmpty(t *testing.T) {
	env := newTestEnv(t)
	persister := NewAttachmentPersister(env.logService)

	if saved := persister.Save(env.db, 1, 1, t.TempDir(), nil); saved != nil {
		t.Errorf("saved = %v, want nil for no attachments", saved)
	}
}

func TestDefaultAttachmentDir(t *testing.T) {
	got := defaultAttachmentDir("/data/att", 7)
	want := filepath.Join("/data/att", "account_7")
	if got != want {
		t.Errorf("defaultAttachmentDir = %q, want %q", got, want)
	}
}
