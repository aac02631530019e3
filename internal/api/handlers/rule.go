package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maildeck/core/internal/database/models"
	"github.com/maildeck/core/internal/services"
)

// RuleHandler handles classification rule related requests
type RuleHandler struct {
	ruleService *services.RuleService
	tagService  *services.TagService
}

// NewRuleHandler creates a new RuleHandler instance
func NewRuleHandler(ruleService *services.RuleService, tagService *services.TagService) *RuleHandler {
	return &RuleHandler{
		ruleService: ruleService,
		tagService:  tagService,
	}
}

// CreateRuleRequest represents the request to create a classification rule
type CreateRuleRequest struct {
	RuleType        string `json:"rule_type" binding:"required"`
	Operator        string `json:"operator" binding:"required"`
	Value           string `json:"value" binding:"required"`
	TagID           uint   `json:"tag_id" binding:"required"`
	Priority        int    `json:"priority"`
	SaveAttachments bool   `json:"save_attachments"`
	AttachmentPath  string `json:"attachment_path"`
}

// ListRules returns all rules for the current user, highest priority first
// GET /api/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ruleList, err := h.ruleService.GetRulesByUserID(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve rules")
		return
	}

	respondOK(c, http.StatusOK, ruleList)
}

// CreateRule creates a new classification rule
// POST /api/rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	// The target tag must belong to the same user
	if _, err := h.tagService.GetTagByIDAndUserID(req.TagID, userID); err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Tag not found")
		return
	}

	rule, err := h.ruleService.CreateRule(services.CreateRuleInput{
		UserID:          userID,
		RuleType:        models.RuleType(req.RuleType),
		Operator:        models.RuleOperator(req.Operator),
		Value:           req.Value,
		TagID:           req.TagID,
		Priority:        req.Priority,
		SaveAttachments: req.SaveAttachments,
		AttachmentPath:  req.AttachmentPath,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidRuleData) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create rule")
		return
	}

	respondOK(c, http.StatusCreated, rule)
}

// SetRuleEnabled enables or disables a rule
// PUT /api/rules/:id/enable, PUT /api/rules/:id/disable
func (h *RuleHandler) SetRuleEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUserID(c)
		if !ok {
			return
		}
		ruleID, ok := parseIDParam(c)
		if !ok {
			return
		}

		rule, err := h.ruleService.SetRuleEnabled(ruleID, userID, enabled)
		if err != nil {
			if errors.Is(err, services.ErrRuleNotFound) {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "Rule not found")
				return
			}
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to change rule status")
			return
		}

		respondOK(c, http.StatusOK, rule)
	}
}

// DeleteRule deletes a rule
// DELETE /api/rules/:id
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	ruleID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.ruleService.DeleteRule(ruleID, userID); err != nil {
		if errors.Is(err, services.ErrRuleNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Rule not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete rule")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Rule deleted"})
}

// ApplyRulesRequest represents the request to re-apply rules to stored mail
type ApplyRulesRequest struct {
	AccountID uint `json:"account_id" binding:"required"`
}

// ApplyRules re-evaluates all enabled rules against an account's stored mail
// POST /api/rules/apply
func (h *RuleHandler) ApplyRules(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req ApplyRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	tagged, err := h.ruleService.ApplyRulesToStored(userID, req.AccountID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to apply rules")
		return
	}

	respondOK(c, http.StatusOK, gin.H{"tagged": tagged})
}
