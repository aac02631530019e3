package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maildeck/core/internal/ingest"
	"github.com/maildeck/core/internal/services"
)

// SyncHandler triggers ingestion runs and exposes their progress. Runs
// execute in the background; clients poll the progress endpoint.
type SyncHandler struct {
	engine         *ingest.Engine
	accountService *services.AccountService

	mu      sync.Mutex
	cancels map[uint]context.CancelFunc
}

// NewSyncHandler creates a new SyncHandler instance
func NewSyncHandler(engine *ingest.Engine, accountService *services.AccountService) *SyncHandler {
	return &SyncHandler{
		engine:         engine,
		accountService: accountService,
		cancels:        make(map[uint]context.CancelFunc),
	}
}

// StartSyncRequest represents the request to start an ingestion run
type StartSyncRequest struct {
	// SinceHours limits the run to recent mail; 0 fetches everything
	SinceHours int `json:"since_hours"`
}

// StartSync launches a background ingestion run for an account
// POST /api/accounts/:id/sync
func (h *SyncHandler) StartSync(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req StartSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
			return
		}
	}

	if _, err := h.accountService.GetAccountByIDAndUserID(accountID, userID); err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Account not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve account")
		return
	}

	if !h.engine.TryLockAccount(accountID) {
		respondError(c, http.StatusConflict, "SYNC_IN_PROGRESS", "A sync is already running for this account")
		return
	}

	var since time.Time
	if req.SinceHours > 0 {
		since = time.Now().Add(-time.Duration(req.SinceHours) * time.Hour)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancels[accountID] = cancel
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.cancels, accountID)
			h.mu.Unlock()
			cancel()
			h.engine.UnlockAccount(accountID)
		}()
		h.engine.Run(ctx, userID, accountID, ingest.RunOptions{Since: since})
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Sync started",
	})
}

// CancelSync requests cancellation of a running ingestion run. Work already
// committed stays committed.
// POST /api/accounts/:id/sync/cancel
func (h *SyncHandler) CancelSync(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	h.mu.Lock()
	cancel, running := h.cancels[accountID]
	h.mu.Unlock()
	if !running {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "No sync running for this account")
		return
	}

	cancel()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cancellation requested"})
}

// GetSyncProgress returns the latest progress snapshot for an account
// GET /api/accounts/:id/sync/progress
func (h *SyncHandler) GetSyncProgress(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	respondOK(c, http.StatusOK, h.engine.Progress(accountID))
}
