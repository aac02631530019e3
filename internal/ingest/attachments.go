package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/maildeck/core/internal/database/models"
	"github.com/maildeck/core/internal/mailparse"
	"github.com/maildeck/core/internal/services"
	"gorm.io/gorm"
)

// AttachmentPersister writes attachment bytes to disk and records metadata
// rows. A failure on one file never aborts the sibling attachments or the
// enclosing message.
type AttachmentPersister struct {
	logService *services.LogService
}

// NewAttachmentPersister creates a new AttachmentPersister
func NewAttachmentPersister(logService *services.LogService) *AttachmentPersister {
	return &AttachmentPersister{logService: logService}
}

// Save writes each attachment under dir (created with parents if absent) and
// records a row per persisted file on tx. Same-name collisions within one
// call are last-write-wins. Returns the rows actually persisted.
func (p *AttachmentPersister) Save(tx *gorm.DB, userID, emailID uint, dir string, attachments []mailparse.Attachment) []models.Attachment {
	if len(attachments) == 0 {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		p.logService.LogWarn(userID, models.LogModuleIngest, "save_attachment", "Failed to create attachment directory", map[string]interface{}{
			"email_id": emailID,
			"dir":      dir,
			"error":    err.Error(),
		})
		return nil
	}

	var saved []models.Attachment
	for _, att := range attachments {
		filename := sanitizeFilename(att.Filename)
		filePath := filepath.Join(dir, filename)

		if err := os.WriteFile(filePath, att.Content, 0644); err != nil {
			p.logService.LogWarn(userID, models.LogModuleIngest, "save_attachment", "Failed to write attachment", map[string]interface{}{
				"email_id": emailID,
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		record := models.Attachment{
			EmailID:  emailID,
			Filename: filename,
			FilePath: filePath,
			FileSize: int64(len(att.Content)),
			MimeType: att.MimeType,
		}
		if err := tx.Create(&record).Error; err != nil {
			p.logService.LogWarn(userID, models.LogModuleIngest, "save_attachment", "Failed to record attachment", map[string]interface{}{
				"email_id": emailID,
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}
		saved = append(saved, record)
	}

	return saved
}

// sanitizeFilename removes unsafe characters and path components from an
// attachment filename before it touches the filesystem. Path components are
// stripped first so "dir/file" keeps only "file" instead of flattening the
// separators into the name.
func sanitizeFilename(name string) string {
	if name == "" {
		return "attachment.bin"
	}
	base := filepath.Base(name)
	out := make([]rune, 0, len(base))
	for _, r := range base {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	cleaned := string(out)
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "attachment.bin"
	}
	return cleaned
}

// defaultAttachmentDir resolves the directory for a rule's attachments when
// the rule itself does not name one.
func defaultAttachmentDir(baseDir string, accountID uint) string {
	return filepath.Join(baseDir, fmt.Sprintf("account_%d", accountID))
}
