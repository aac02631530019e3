package ingest

import (
	"errors"

	"github.com/maildeck/core/internal/database/models"
)

var (
	// ErrConnectionFailed indicates the IMAP connect/login failed. Fatal to
	// the run; retry policy belongs to the caller.
	ErrConnectionFailed = errors.New("IMAP connection failed")
	// ErrAccountDisabled indicates the account is disabled
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrCommitFailed indicates the run-level transaction commit failed
	ErrCommitFailed = errors.New("commit failed")
)

// Stage identifies where a run currently is in its lifecycle.
type Stage string

const (
	StageConnecting Stage = "connecting"
	StageListing    Stage = "listing"
	StageProcessing Stage = "processing"
	StageCommitting Stage = "committing"
	StageCompleted  Stage = "completed"
	StageCancelled  Stage = "cancelled"
	StageFailed     Stage = "failed"
)

// EventType discriminates the events a run emits.
type EventType string

const (
	// EventStage announces a lifecycle transition with a human-readable message
	EventStage EventType = "stage"
	// EventProgress carries processed/total counters, emitted after every message
	EventProgress EventType = "progress"
	// EventBatch carries newly inserted emails for incremental consumption
	EventBatch EventType = "batch"
	// EventDone is the terminal event of a successful or cancelled run
	EventDone EventType = "done"
	// EventError is the terminal event of a failed run
	EventError EventType = "error"
)

// Event is one progress/result message flowing from a run to its consumer.
// Only the fields relevant to the Type are populated.
type Event struct {
	Type      EventType      `json:"type"`
	Stage     Stage          `json:"stage,omitempty"`
	Message   string         `json:"message,omitempty"`
	Processed int            `json:"processed,omitempty"`
	Total     int            `json:"total,omitempty"`
	Batch     []models.Email `json:"batch,omitempty"`
	NewCount  int            `json:"new_count,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Result is the terminal summary of one ingestion run. A cancelled run is a
// normal result with Cancelled set, not an error: everything committed before
// the stop request stays committed.
type Result struct {
	NewCount  int  `json:"new_count"`
	Updated   int  `json:"updated"`
	Skipped   int  `json:"skipped"` // messages dropped by per-message errors
	Processed int  `json:"processed"`
	Total     int  `json:"total"`
	Cancelled bool `json:"cancelled"`
}

// SyncProgress is a point-in-time snapshot of a run, for polling consumers.
type SyncProgress struct {
	AccountID uint   `json:"account_id"`
	Stage     Stage  `json:"stage"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	NewCount  int    `json:"new_count"`
	Error     string `json:"error,omitempty"`
}
