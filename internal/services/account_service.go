package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"time"

	"github.com/maildeck/core/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrAccountNotFound indicates the mail account was not found
	ErrAccountNotFound = errors.New("mail account not found")
	// ErrAccountAlreadyExists indicates the mail account already exists for this user
	ErrAccountAlreadyExists = errors.New("mail account already exists for this user")
	// ErrInvalidAccountData indicates invalid account data
	ErrInvalidAccountData = errors.New("invalid account data")
	// ErrEncryptionFailed indicates password encryption failed
	ErrEncryptionFailed = errors.New("password encryption failed")
	// ErrDecryptionFailed indicates password decryption failed
	ErrDecryptionFailed = errors.New("password decryption failed")
)

// AccountService handles mail account business logic, including the
// reversible encryption of stored IMAP passwords.
type AccountService struct {
	db            *gorm.DB
	encryptionKey []byte // 32 bytes for AES-256
	logService    *LogService
}

// NewAccountService creates a new AccountService instance
func NewAccountService(db *gorm.DB, encryptionKey []byte) *AccountService {
	// Ensure key is 32 bytes for AES-256
	key := make([]byte, 32)
	copy(key, encryptionKey)
	return &AccountService{
		db:            db,
		encryptionKey: key,
		logService:    NewLogService(db),
	}
}

// EncryptPassword encrypts a password using AES-256-GCM
func (s *AccountService) EncryptPassword(password string) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", ErrEncryptionFailed
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrEncryptionFailed
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ErrEncryptionFailed
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(password), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptPassword decrypts a password using AES-256-GCM
func (s *AccountService) DecryptPassword(encryptedPassword string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedPassword)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrDecryptionFailed
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// CreateAccountInput represents the input for creating a mail account
type CreateAccountInput struct {
	UserID   uint
	Email    string
	IMAPHost string
	IMAPPort int
	Username string
	Password string
	UseSSL   bool
}

// CreateAccount creates a new mail account for a user
func (s *AccountService) CreateAccount(input CreateAccountInput) (*models.Account, error) {
	if input.Email == "" || input.IMAPHost == "" || input.Username == "" || input.Password == "" {
		return nil, ErrInvalidAccountData
	}

	var existingAccount models.Account
	if err := s.db.Where("user_id = ? AND email = ?", input.UserID, input.Email).First(&existingAccount).Error; err == nil {
		return nil, ErrAccountAlreadyExists
	}

	encryptedPassword, err := s.EncryptPassword(input.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		UserID:            input.UserID,
		Email:             input.Email,
		IMAPHost:          input.IMAPHost,
		IMAPPort:          input.IMAPPort,
		Username:          input.Username,
		PasswordEncrypted: encryptedPassword,
		UseSSL:            input.UseSSL,
		Enabled:           true,
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(input.UserID, models.LogModuleAccount, "create", "Mail account created", map[string]interface{}{
		"account_id": account.ID,
		"email":      account.Email,
	})

	return account, nil
}

// GetAccountByID retrieves a mail account by ID
func (s *AccountService) GetAccountByID(id uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByIDAndUserID retrieves a mail account by ID and user ID (for authorization)
func (s *AccountService) GetAccountByIDAndUserID(id, userID uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountsByUserID retrieves all mail accounts for a user
func (s *AccountService) GetAccountsByUserID(userID uint) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetEnabledAccounts retrieves all enabled mail accounts across users
func (s *AccountService) GetEnabledAccounts() ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.Where("enabled = ?", true).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpdateAccountInput represents the input for updating a mail account
type UpdateAccountInput struct {
	IMAPHost string
	IMAPPort int
	Username string
	Password string // Optional: only update if not empty
	UseSSL   bool
}

// UpdateAccount updates a mail account
func (s *AccountService) UpdateAccount(id, userID uint, input UpdateAccountInput) (*models.Account, error) {
	account, err := s.GetAccountByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}

	if input.IMAPHost != "" {
		account.IMAPHost = input.IMAPHost
	}
	if input.IMAPPort > 0 {
		account.IMAPPort = input.IMAPPort
	}
	if input.Username != "" {
		account.Username = input.Username
	}
	account.UseSSL = input.UseSSL

	if input.Password != "" {
		encryptedPassword, err := s.EncryptPassword(input.Password)
		if err != nil {
			return nil, err
		}
		account.PasswordEncrypted = encryptedPassword
	}

	if err := s.db.Save(account).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(userID, models.LogModuleAccount, "update", "Mail account updated", map[string]interface{}{
		"account_id": account.ID,
		"email":      account.Email,
	})

	return account, nil
}

// DeleteAccount deletes a mail account
func (s *AccountService) DeleteAccount(id, userID uint) error {
	account, err := s.GetAccountByIDAndUserID(id, userID)
	if err != nil {
		return err
	}

	email := account.Email

	if err := s.db.Delete(account).Error; err != nil {
		return err
	}

	s.logService.LogInfo(userID, models.LogModuleAccount, "delete", "Mail account deleted", map[string]interface{}{
		"account_id": id,
		"email":      email,
	})

	return nil
}

// SetAccountEnabled sets the enabled status of an account
func (s *AccountService) SetAccountEnabled(id, userID uint, enabled bool) (*models.Account, error) {
	account, err := s.GetAccountByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}

	account.Enabled = enabled

	if err := s.db.Save(account).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(userID, models.LogModuleAccount, "set_enabled", "Mail account status changed", map[string]interface{}{
		"account_id": account.ID,
		"enabled":    enabled,
	})

	return account, nil
}

// GetDecryptedPassword retrieves the decrypted password for an account
func (s *AccountService) GetDecryptedPassword(account *models.Account) (string, error) {
	return s.DecryptPassword(account.PasswordEncrypted)
}

// TouchLastSync records the start time of a successful sync run
func (s *AccountService) TouchLastSync(accountID uint, at time.Time) error {
	return s.db.Model(&models.Account{}).Where("id = ?", accountID).Update("last_sync_at", at).Error
}

// TestIMAPConnection tests the IMAP connection for an account
func (s *AccountService) TestIMAPConnection(account *models.Account) ConnectionTestResult {
	password, err := s.DecryptPassword(account.PasswordEncrypted)
	if err != nil {
		return ConnectionTestResult{
			Success: false,
			Message: "Failed to decrypt password: " + err.Error(),
		}
	}

	addr := buildAddress(account.IMAPHost, account.IMAPPort)
	return testIMAPConnectionInternal(addr, account.Username, password, account.UseSSL)
}
