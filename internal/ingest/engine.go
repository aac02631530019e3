// Package ingest implements the progressive mail ingestion pipeline: a
// deduplicating fetch loop over an IMAP mailbox, classification-rule
// application, attachment persistence and a real-time monitor that keeps the
// store current. Runs stream progress events to their consumer and are
// cancellable between messages without losing committed work.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/maildeck/core/internal/database/models"
	"github.com/maildeck/core/internal/mailparse"
	"github.com/maildeck/core/internal/rules"
	"github.com/maildeck/core/internal/services"
	"gorm.io/gorm"
)

const (
	// DefaultBatchSize is the number of new messages per batch-ready event
	DefaultBatchSize = 100
	// DefaultCommitInterval is the number of messages between commits
	DefaultCommitInterval = 50

	// A brief pause every few messages keeps an interactive caller
	// responsive during very large runs.
	throttleEvery = 25
	throttlePause = 5 * time.Millisecond
)

// Options tunes an Engine. Zero values fall back to the defaults.
type Options struct {
	BatchSize      int
	CommitInterval int
	AttachmentsDir string // base directory for rules without an explicit path
}

// Engine is the deduplicating ingestion engine. It is safe for concurrent
// use across accounts; runs against the same account must be serialized by
// the caller, which the TryLockAccount/UnlockAccount pair supports.
type Engine struct {
	db             *gorm.DB
	accountService *services.AccountService
	ruleService    *services.RuleService
	logService     *services.LogService
	dialer         Dialer
	persister      *AttachmentPersister
	opts           Options

	progressMu sync.RWMutex
	progress   map[uint]*SyncProgress
	busy       sync.Map // accountID -> in-flight marker
}

// NewEngine creates a new ingestion Engine
func NewEngine(db *gorm.DB, accountService *services.AccountService, ruleService *services.RuleService, logService *services.LogService, dialer Dialer, opts Options) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.CommitInterval <= 0 {
		opts.CommitInterval = DefaultCommitInterval
	}
	return &Engine{
		db:             db,
		accountService: accountService,
		ruleService:    ruleService,
		logService:     logService,
		dialer:         dialer,
		persister:      NewAttachmentPersister(logService),
		opts:           opts,
		progress:       make(map[uint]*SyncProgress),
	}
}

// TryLockAccount marks an account as busy. Returns false if a run is
// already in flight for it.
func (e *Engine) TryLockAccount(accountID uint) bool {
	_, loaded := e.busy.LoadOrStore(accountID, true)
	return !loaded
}

// UnlockAccount releases the busy marker for an account
func (e *Engine) UnlockAccount(accountID uint) {
	e.busy.Delete(accountID)
}

// IsAccountBusy reports whether a run is in flight for an account
func (e *Engine) IsAccountBusy(accountID uint) bool {
	_, loaded := e.busy.Load(accountID)
	return loaded
}

// Progress returns a snapshot of the most recent run for an account
func (e *Engine) Progress(accountID uint) SyncProgress {
	e.progressMu.RLock()
	defer e.progressMu.RUnlock()
	if p, ok := e.progress[accountID]; ok {
		return *p
	}
	return SyncProgress{AccountID: accountID, Stage: "idle"}
}

func (e *Engine) setProgress(accountID uint, update func(p *SyncProgress)) {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	p, ok := e.progress[accountID]
	if !ok {
		p = &SyncProgress{AccountID: accountID}
		e.progress[accountID] = p
	}
	update(p)
}

// RunOptions controls one ingestion run.
type RunOptions struct {
	// Since restricts listing to messages on or after this date. Zero
	// fetches the whole mailbox.
	Since time.Time
	// Events, when non-nil, receives every progress/batch/terminal event.
	// Sends block, so the consumer must drain the channel.
	Events chan<- Event
}

// Sync runs the engine without an event stream and returns the new-message
// count. This is the entry point the monitor uses.
func (e *Engine) Sync(ctx context.Context, userID, accountID uint, since time.Time) (*Result, error) {
	return e.Run(ctx, userID, accountID, RunOptions{Since: since})
}

// Run executes one ingestion run for an account: connect, list, then for
// each message dedupe-then-insert-or-update, apply rules, persist
// attachments, emitting progress after every message and batch events as
// new messages accumulate. Cancellation via ctx is cooperative, checked
// between messages, and yields a normal partial Result.
func (e *Engine) Run(ctx context.Context, userID, accountID uint, opts RunOptions) (*Result, error) {
	runStartedAt := time.Now()

	account, err := e.accountService.GetAccountByIDAndUserID(accountID, userID)
	if err != nil {
		return nil, err
	}
	if !account.Enabled {
		return nil, ErrAccountDisabled
	}

	e.setProgress(accountID, func(p *SyncProgress) {
		*p = SyncProgress{AccountID: accountID, Stage: StageConnecting}
	})
	e.emit(opts, Event{Type: EventStage, Stage: StageConnecting, Message: fmt.Sprintf("Connecting to %s", account.IMAPHost)})

	password, err := e.accountService.GetDecryptedPassword(account)
	if err != nil {
		return nil, e.fail(accountID, opts, fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}

	mbox, err := e.dialer.Dial(account, password)
	if err != nil {
		e.logService.LogError(userID, models.LogModuleIngest, "connect", "IMAP connection failed", map[string]interface{}{
			"account_id": accountID,
			"error":      err.Error(),
		})
		return nil, e.fail(accountID, opts, fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}
	defer mbox.Close()

	e.setProgress(accountID, func(p *SyncProgress) { p.Stage = StageListing })
	e.emit(opts, Event{Type: EventStage, Stage: StageListing, Message: "Listing messages"})

	messages, err := mbox.List(opts.Since)
	if err != nil {
		return nil, e.fail(accountID, opts, fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}

	result := &Result{Total: len(messages)}
	e.setProgress(accountID, func(p *SyncProgress) {
		p.Stage = StageProcessing
		p.Total = result.Total
	})

	if len(messages) == 0 {
		return e.complete(userID, account, opts, result, runStartedAt)
	}

	ruleList, err := e.ruleService.GetEnabledRulesByUserID(userID)
	if err != nil {
		return nil, e.fail(accountID, opts, err)
	}

	e.emit(opts, Event{Type: EventStage, Stage: StageProcessing, Message: fmt.Sprintf("Processing %d messages", result.Total)})

	tx := e.db.Begin()
	if tx.Error != nil {
		return nil, e.fail(accountID, opts, fmt.Errorf("%w: %v", ErrCommitFailed, tx.Error))
	}

	var batch []models.Email
	sinceCommit := 0
	cancelled := false

	for i := range messages {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		inserted, err := e.processMessage(tx, userID, account, &messages[i], ruleList)
		if err != nil {
			// Per-message errors skip the message, never the run
			result.Skipped++
			e.logService.LogWarn(userID, models.LogModuleIngest, "process", "Message skipped", map[string]interface{}{
				"account_id": accountID,
				"error":      err.Error(),
			})
		} else if inserted != nil {
			result.NewCount++
			batch = append(batch, *inserted)
		} else {
			result.Updated++
		}

		result.Processed++
		e.setProgress(accountID, func(p *SyncProgress) {
			p.Processed = result.Processed
			p.NewCount = result.NewCount
		})
		e.emit(opts, Event{Type: EventProgress, Processed: result.Processed, Total: result.Total})

		if len(batch) >= e.opts.BatchSize {
			e.emit(opts, Event{Type: EventBatch, Batch: batch})
			batch = nil
		}

		sinceCommit++
		if sinceCommit >= e.opts.CommitInterval {
			if err := tx.Commit().Error; err != nil {
				return nil, e.fail(accountID, opts, fmt.Errorf("%w: %v", ErrCommitFailed, err))
			}
			tx = e.db.Begin()
			if tx.Error != nil {
				return nil, e.fail(accountID, opts, fmt.Errorf("%w: %v", ErrCommitFailed, tx.Error))
			}
			sinceCommit = 0
		}

		if result.Processed%throttleEvery == 0 {
			time.Sleep(throttlePause)
		}
	}

	// Flush the partial batch so a cancelled run still delivers what it
	// processed.
	if len(batch) > 0 {
		e.emit(opts, Event{Type: EventBatch, Batch: batch})
	}

	e.setProgress(accountID, func(p *SyncProgress) { p.Stage = StageCommitting })
	e.emit(opts, Event{Type: EventStage, Stage: StageCommitting, Message: "Committing"})
	if err := tx.Commit().Error; err != nil {
		return nil, e.fail(accountID, opts, fmt.Errorf("%w: %v", ErrCommitFailed, err))
	}

	result.Cancelled = cancelled
	return e.complete(userID, account, opts, result, runStartedAt)
}

// complete finishes a run: updates the account's last-sync timestamp (only
// for runs that saw the whole listing), records the summary and emits the
// terminal event.
func (e *Engine) complete(userID uint, account *models.Account, opts RunOptions, result *Result, startedAt time.Time) (*Result, error) {
	stage := StageCompleted
	if result.Cancelled {
		stage = StageCancelled
	} else {
		// A cancelled run must not advance the checkpoint, or the unseen
		// tail of the mailbox would be skipped by the next incremental run.
		if err := e.accountService.TouchLastSync(account.ID, startedAt); err != nil {
			e.logService.LogWarn(userID, models.LogModuleIngest, "last_sync", "Failed to update last sync time", map[string]interface{}{
				"account_id": account.ID,
				"error":      err.Error(),
			})
		}
	}

	e.setProgress(account.ID, func(p *SyncProgress) {
		p.Stage = stage
		p.Processed = result.Processed
		p.NewCount = result.NewCount
	})

	e.logService.LogInfo(userID, models.LogModuleIngest, "run", "Ingestion run finished", map[string]interface{}{
		"account_id": account.ID,
		"new":        result.NewCount,
		"updated":    result.Updated,
		"skipped":    result.Skipped,
		"total":      result.Total,
		"cancelled":  result.Cancelled,
	})

	e.emit(opts, Event{Type: EventStage, Stage: stage})
	e.emit(opts, Event{Type: EventDone, NewCount: result.NewCount, Processed: result.Processed, Total: result.Total})
	return result, nil
}

// fail marks the run failed and emits the terminal error event
func (e *Engine) fail(accountID uint, opts RunOptions, err error) error {
	e.setProgress(accountID, func(p *SyncProgress) {
		p.Stage = StageFailed
		p.Error = err.Error()
	})
	e.emit(opts, Event{Type: EventError, Error: err.Error()})
	return err
}

// emit sends an event to the run's consumer, if any
func (e *Engine) emit(opts RunOptions, ev Event) {
	if opts.Events != nil {
		opts.Events <- ev
	}
}

// processMessage ingests one message inside tx. It returns the inserted
// record for first-seen UIDs and nil for updates of already-stored ones.
func (e *Engine) processMessage(tx *gorm.DB, userID uint, account *models.Account, m *RawMessage, ruleList []models.Rule) (*models.Email, error) {
	uid := messageUID(m)
	parsed := mailparse.Parse(m.Raw)

	recipientsJSON, _ := json.Marshal(m.To)

	combined := parsed.Text
	if combined == "" {
		combined = parsed.HTML
	}

	size := int64(m.Size)
	if size == 0 {
		size = int64(len(m.Raw))
	}

	var existing models.Email
	err := tx.Where("account_id = ? AND uid = ?", account.ID, uid).First(&existing).Error
	if err == nil {
		// Re-seen UID: refresh mutable fields only. The read flag is
		// user-owned and survives every re-sync, and rule-driven
		// attachment persistence happens on first sight only.
		updates := map[string]interface{}{
			"subject":        m.Subject,
			"sender":         m.From,
			"recipients":     string(recipientsJSON),
			"date":           m.Date,
			"has_attachment": len(parsed.Attachments) > 0,
			"body":           combined,
			"body_text":      parsed.Text,
			"body_html":      parsed.HTML,
			"body_format":    parsed.Format,
			"size_bytes":     size,
		}
		if err := tx.Model(&models.Email{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return nil, err
		}

		existing.Subject = m.Subject
		existing.Sender = m.From
		existing.Body = combined
		e.applyRules(tx, userID, account, &existing, parsed, ruleList, false)
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := models.Email{
		AccountID:     account.ID,
		UID:           uid,
		Subject:       m.Subject,
		Sender:        m.From,
		Recipients:    string(recipientsJSON),
		Date:          m.Date,
		HasAttachment: len(parsed.Attachments) > 0,
		Body:          combined,
		BodyText:      parsed.Text,
		BodyHTML:      parsed.HTML,
		BodyFormat:    parsed.Format,
		SizeBytes:     size,
		IsRead:        false,
		Priority:      models.PriorityNormal,
	}
	if err := tx.Create(&email).Error; err != nil {
		return nil, err
	}

	e.applyRules(tx, userID, account, &email, parsed, ruleList, true)
	return &email, nil
}

// applyRules evaluates the enabled rules (already sorted by priority
// descending) against one message and attaches every matching tag. Rules
// are not mutually exclusive. Attachment persistence fires on insert only.
func (e *Engine) applyRules(tx *gorm.DB, userID uint, account *models.Account, email *models.Email, parsed mailparse.Body, ruleList []models.Rule, isNew bool) {
	for i := range ruleList {
		rule := &ruleList[i]
		if !rules.Matches(rule, email.Sender, email.Subject, email.Body) {
			continue
		}

		if err := services.AttachTagTx(tx, email.ID, rule.TagID); err != nil {
			// Tagging failures are persistence errors: logged, never fatal
			e.logService.LogWarn(userID, models.LogModuleIngest, "apply_rule", "Failed to attach tag", map[string]interface{}{
				"email_id": email.ID,
				"rule_id":  rule.ID,
				"error":    err.Error(),
			})
			continue
		}

		if isNew && rule.SaveAttachments && len(parsed.Attachments) > 0 {
			dir := rule.AttachmentPath
			if dir == "" {
				dir = defaultAttachmentDir(e.opts.AttachmentsDir, account.ID)
			}
			e.persister.Save(tx, userID, email.ID, dir, parsed.Attachments)
		}
	}
}

// messageUID derives the deduplication key for a message. Real messages
// carry a server UID; for the rare UID-less message a deterministic
// placeholder is synthesized from the raw content so an identical re-fetch
// still dedups.
func messageUID(m *RawMessage) string {
	if m.UID != 0 {
		return strconv.FormatUint(uint64(m.UID), 10)
	}
	if len(m.Raw) > 0 {
		sum := sha256.Sum256(m.Raw)
		return "local:" + hex.EncodeToString(sum[:16])
	}
	seed := fmt.Sprintf("%d|%s|%s", m.Date.UnixNano(), m.Subject, m.From)
	sum := sha256.Sum256([]byte(seed))
	return "gen:" + hex.EncodeToString(sum[:16])
}
