package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maildeck/core/internal/services"
)

// TagHandler handles tag related requests
type TagHandler struct {
	tagService   *services.TagService
	emailService *services.EmailService
}

// NewTagHandler creates a new TagHandler instance
func NewTagHandler(tagService *services.TagService, emailService *services.EmailService) *TagHandler {
	return &TagHandler{
		tagService:   tagService,
		emailService: emailService,
	}
}

// CreateTagRequest represents the request to create a tag
type CreateTagRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

// ListTags returns all tags for the current user
// GET /api/tags
func (h *TagHandler) ListTags(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	tags, err := h.tagService.GetTagsByUserID(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve tags")
		return
	}

	respondOK(c, http.StatusOK, tags)
}

// CreateTag creates a new tag
// POST /api/tags
func (h *TagHandler) CreateTag(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	tag, err := h.tagService.CreateTag(userID, req.Name, req.Color)
	if err != nil {
		if errors.Is(err, services.ErrTagAlreadyExists) {
			respondError(c, http.StatusConflict, "CONFLICT", "Tag already exists")
			return
		}
		if errors.Is(err, services.ErrInvalidTagData) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create tag")
		return
	}

	respondOK(c, http.StatusCreated, tag)
}

// DeleteTag deletes a tag and its email associations
// DELETE /api/tags/:id
func (h *TagHandler) DeleteTag(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tagID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.tagService.DeleteTag(tagID, userID); err != nil {
		if errors.Is(err, services.ErrTagNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Tag not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete tag")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Tag deleted"})
}

// AttachTagRequest represents the request to attach/detach a tag
type AttachTagRequest struct {
	TagID uint `json:"tag_id" binding:"required"`
}

// AttachTag associates a tag with an email
// POST /api/emails/:id/tags
func (h *TagHandler) AttachTag(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	emailID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req AttachTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	// Verify ownership of both sides before linking
	if _, err := h.emailService.GetEmailByIDAndUserID(emailID, userID); err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Email not found")
		return
	}
	if _, err := h.tagService.GetTagByIDAndUserID(req.TagID, userID); err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Tag not found")
		return
	}

	if err := h.tagService.AttachTag(emailID, req.TagID); err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to attach tag")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DetachTag removes a tag association from an email
// DELETE /api/emails/:id/tags/:tagID
func (h *TagHandler) DetachTag(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	emailID, ok := parseIDParam(c)
	if !ok {
		return
	}
	tagID := uintParam(c, "tagID")
	if tagID == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid tag ID")
		return
	}

	if _, err := h.emailService.GetEmailByIDAndUserID(emailID, userID); err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Email not found")
		return
	}

	if err := h.tagService.DetachTag(emailID, tagID); err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to detach tag")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
