package config

import (
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	DatabaseDSN    string `json:"database_dsn"` // MySQL DSN; empty means SQLite at DatabasePath
	DatabasePath   string `json:"database_path"`
	APIPort        string `json:"api_port"`
	LogLevel       string `json:"log_level"`
	DataDir        string `json:"data_dir"`
	AttachmentsDir string `json:"attachments_dir"` // default target for rule-saved attachments
	EncryptionKey  string `json:"encryption_key"`  // used to encrypt mailbox passwords
	CORSOrigins    string `json:"cors_origins"`    // comma-separated, * means all

	// Ingestion tuning
	BatchSize      int `json:"batch_size"`       // messages per batch-ready event
	CommitInterval int `json:"commit_interval"`  // messages per transaction commit
	MonitorSecs    int `json:"monitor_interval"` // seconds between monitor cycles
	LookbackMins   int `json:"lookback_minutes"` // first-cycle lookback window
}

// Default configuration values
const (
	DefaultDatabasePath   = "data/maildeck.db"
	DefaultAPIPort        = "8080"
	DefaultLogLevel       = "INFO"
	DefaultDataDir        = "data"
	DefaultAttachmentsDir = "" // empty means DataDir/attachments
	DefaultEncryptionKey  = "maildeck-default-key-change-in-production"
	DefaultCORSOrigins    = "*"
	DefaultBatchSize      = 100
	DefaultCommitInterval = 50
	DefaultMonitorSecs    = 30
	DefaultLookbackMins   = 60
)

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:   DefaultDatabasePath,
		APIPort:        DefaultAPIPort,
		LogLevel:       DefaultLogLevel,
		DataDir:        DefaultDataDir,
		AttachmentsDir: DefaultAttachmentsDir,
		EncryptionKey:  DefaultEncryptionKey,
		CORSOrigins:    DefaultCORSOrigins,
		BatchSize:      DefaultBatchSize,
		CommitInterval: DefaultCommitInterval,
		MonitorSecs:    DefaultMonitorSecs,
		LookbackMins:   DefaultLookbackMins,
	}

	// Config file is optional
	_ = cfg.loadFromFile()

	cfg.loadFromEnv()

	return cfg, nil
}

// loadFromFile loads configuration from config.json
func (c *Config) loadFromFile() error {
	configPaths := []string{
		"config.json",
		filepath.Join(c.DataDir, "config.json"),
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(data, c); err != nil {
			return err
		}
		return nil
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if val := os.Getenv("MAILDECK_DATABASE_DSN"); val != "" {
		c.DatabaseDSN = val
	}
	if val := os.Getenv("MAILDECK_DATABASE_PATH"); val != "" {
		c.DatabasePath = val
	}
	if val := os.Getenv("MAILDECK_API_PORT"); val != "" {
		c.APIPort = val
	}
	if val := os.Getenv("MAILDECK_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("MAILDECK_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("MAILDECK_ATTACHMENTS_DIR"); val != "" {
		c.AttachmentsDir = val
	}
	if val := os.Getenv("MAILDECK_ENCRYPTION_KEY"); val != "" {
		c.EncryptionKey = val
	}
	if val := os.Getenv("MAILDECK_CORS_ORIGINS"); val != "" {
		c.CORSOrigins = val
	}
	if val := os.Getenv("MAILDECK_BATCH_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.BatchSize = n
		}
	}
	if val := os.Getenv("MAILDECK_COMMIT_INTERVAL"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.CommitInterval = n
		}
	}
	if val := os.Getenv("MAILDECK_MONITOR_INTERVAL"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.MonitorSecs = n
		}
	}
	if val := os.Getenv("MAILDECK_LOOKBACK_MINUTES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.LookbackMins = n
		}
	}
}

// GetAttachmentsBaseDir returns the base directory for rule-saved attachments
func (c *Config) GetAttachmentsBaseDir() string {
	if c.AttachmentsDir != "" {
		return c.AttachmentsDir
	}
	return filepath.Join(c.DataDir, "attachments")
}

// GetEncryptionKey returns the 32-byte key for mailbox password encryption
func (c *Config) GetEncryptionKey() []byte {
	hash := sha256.Sum256([]byte(c.EncryptionKey))
	return hash[:]
}

// MonitorInterval returns the monitor cycle interval as a duration
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorSecs) * time.Second
}

// LookbackWindow returns the first-cycle lookback window as a duration
func (c *Config) LookbackWindow() time.Duration {
	return time.Duration(c.LookbackMins) * time.Minute
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
