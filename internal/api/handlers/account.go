package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/maildeck/core/internal/database/models"
	"github.com/maildeck/core/internal/services"
)

// AccountHandler handles mail account related requests
type AccountHandler struct {
	accountService *services.AccountService
}

// NewAccountHandler creates a new AccountHandler instance
func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateAccountRequest represents the request to create a mail account
type CreateAccountRequest struct {
	Email    string `json:"email" binding:"required,email"`
	IMAPHost string `json:"imap_host" binding:"required"`
	IMAPPort int    `json:"imap_port" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	UseSSL   bool   `json:"use_ssl"`
}

// UpdateAccountRequest represents the request to update a mail account
type UpdateAccountRequest struct {
	IMAPHost string `json:"imap_host"`
	IMAPPort int    `json:"imap_port"`
	Username string `json:"username"`
	Password string `json:"password"`
	UseSSL   bool   `json:"use_ssl"`
}

// AccountResponse represents the response for a mail account
type AccountResponse struct {
	ID         uint   `json:"id"`
	Email      string `json:"email"`
	IMAPHost   string `json:"imap_host"`
	IMAPPort   int    `json:"imap_port"`
	Username   string `json:"username"`
	UseSSL     bool   `json:"use_ssl"`
	Enabled    bool   `json:"enabled"`
	LastSyncAt int64  `json:"last_sync_at"`
	CreatedAt  int64  `json:"created_at"`
}

// toAccountResponse converts an Account model to AccountResponse
func toAccountResponse(account *models.Account) AccountResponse {
	resp := AccountResponse{
		ID:        account.ID,
		Email:     account.Email,
		IMAPHost:  account.IMAPHost,
		IMAPPort:  account.IMAPPort,
		Username:  account.Username,
		UseSSL:    account.UseSSL,
		Enabled:   account.Enabled,
		CreatedAt: account.CreatedAt.Unix(),
	}
	if !account.LastSyncAt.IsZero() {
		resp.LastSyncAt = account.LastSyncAt.Unix()
	}
	return resp
}

// parseIDParam parses the :id path parameter
func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid ID")
		return 0, false
	}
	return uint(id), true
}

// ListAccounts returns all mail accounts for the current user
// GET /api/accounts
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	accounts, err := h.accountService.GetAccountsByUserID(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve accounts")
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		response = append(response, toAccountResponse(&accounts[i]))
	}
	respondOK(c, http.StatusOK, response)
}

// CreateAccount creates a new mail account
// POST /api/accounts
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	account, err := h.accountService.CreateAccount(services.CreateAccountInput{
		UserID:   userID,
		Email:    req.Email,
		IMAPHost: req.IMAPHost,
		IMAPPort: req.IMAPPort,
		Username: req.Username,
		Password: req.Password,
		UseSSL:   req.UseSSL,
	})
	if err != nil {
		if errors.Is(err, services.ErrAccountAlreadyExists) {
			respondError(c, http.StatusConflict, "CONFLICT", "Mail account already exists")
			return
		}
		if errors.Is(err, services.ErrInvalidAccountData) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account")
		return
	}

	respondOK(c, http.StatusCreated, toAccountResponse(account))
}

// GetAccount returns a specific mail account
// GET /api/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccountByIDAndUserID(accountID, userID)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Account not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve account")
		return
	}

	respondOK(c, http.StatusOK, toAccountResponse(account))
}

// UpdateAccount updates a mail account
// PUT /api/accounts/:id
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	account, err := h.accountService.UpdateAccount(accountID, userID, services.UpdateAccountInput{
		IMAPHost: req.IMAPHost,
		IMAPPort: req.IMAPPort,
		Username: req.Username,
		Password: req.Password,
		UseSSL:   req.UseSSL,
	})
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Account not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update account")
		return
	}

	respondOK(c, http.StatusOK, toAccountResponse(account))
}

// DeleteAccount deletes a mail account
// DELETE /api/accounts/:id
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(accountID, userID); err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Account not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account deleted"})
}

// SetAccountEnabled enables or disables a mail account
// PUT /api/accounts/:id/enable, PUT /api/accounts/:id/disable
func (h *AccountHandler) SetAccountEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUserID(c)
		if !ok {
			return
		}
		accountID, ok := parseIDParam(c)
		if !ok {
			return
		}

		account, err := h.accountService.SetAccountEnabled(accountID, userID, enabled)
		if err != nil {
			if errors.Is(err, services.ErrAccountNotFound) {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "Account not found")
				return
			}
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to change account status")
			return
		}

		respondOK(c, http.StatusOK, toAccountResponse(account))
	}
}

// TestConnection tests the IMAP connection for a stored account
// POST /api/accounts/:id/test
func (h *AccountHandler) TestConnection(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccountByIDAndUserID(accountID, userID)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Account not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve account")
		return
	}

	result := h.accountService.TestIMAPConnection(account)
	respondOK(c, http.StatusOK, result)
}
