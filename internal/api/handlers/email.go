package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/maildeck/core/internal/services"
)

// EmailHandler handles stored email related requests
type EmailHandler struct {
	emailService *services.EmailService
	tagService   *services.TagService
}

// NewEmailHandler creates a new EmailHandler instance
func NewEmailHandler(emailService *services.EmailService, tagService *services.TagService) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
		tagService:   tagService,
	}
}

// ListEmails returns stored emails, newest first
// GET /api/emails?account_id=&tag_id=&unread=&limit=&offset=
func (h *EmailHandler) ListEmails(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	input := services.ListEmailsInput{
		AccountID: uintQuery(c, "account_id"),
		TagID:     uintQuery(c, "tag_id"),
		Unread:    c.Query("unread") == "true",
		Limit:     intQuery(c, "limit"),
		Offset:    intQuery(c, "offset"),
	}

	emails, err := h.emailService.ListEmails(userID, input)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve emails")
		return
	}

	respondOK(c, http.StatusOK, emails)
}

// GetEmail returns one email with its attachments and tags
// GET /api/emails/:id
func (h *EmailHandler) GetEmail(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	emailID, ok := parseIDParam(c)
	if !ok {
		return
	}

	email, err := h.emailService.GetEmailByIDAndUserID(emailID, userID)
	if err != nil {
		if errors.Is(err, services.ErrEmailNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Email not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve email")
		return
	}

	tags, err := h.tagService.GetTagsForEmail(email.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve tags")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"email": email,
		"tags":  tags,
	})
}

// SetReadStatusRequest represents the request to change the read flag
type SetReadStatusRequest struct {
	Read bool `json:"read"`
}

// SetReadStatus sets the read flag on an email
// PUT /api/emails/:id/read
func (h *EmailHandler) SetReadStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	emailID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req SetReadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.emailService.SetReadStatus(emailID, userID, req.Read); err != nil {
		if errors.Is(err, services.ErrEmailNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Email not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update read status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetEmailCount returns the stored email count for an account
// GET /api/emails/count?account_id=
func (h *EmailHandler) GetEmailCount(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	accountID := uintQuery(c, "account_id")
	if accountID == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "account_id is required")
		return
	}

	count, err := h.emailService.CountEmails(accountID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count emails")
		return
	}

	respondOK(c, http.StatusOK, gin.H{"count": count})
}

// uintQuery parses an optional unsigned query parameter, 0 when absent
func uintQuery(c *gin.Context, name string) uint {
	val, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(val)
}

// intQuery parses an optional integer query parameter, 0 when absent
func intQuery(c *gin.Context, name string) int {
	val, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return val
}
