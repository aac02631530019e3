package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maildeck/core/internal/services"
)

// LogHandler exposes the activity log
type LogHandler struct {
	logService *services.LogService
}

// NewLogHandler creates a new LogHandler instance
func NewLogHandler(logService *services.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

// ListLogs returns recent activity log entries for the current user
// GET /api/logs?limit=
func (h *LogHandler) ListLogs(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	logs, err := h.logService.ListLogs(userID, intQuery(c, "limit"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve logs")
		return
	}

	respondOK(c, http.StatusOK, logs)
}
