// Package config provides XML-based configuration management for air-gapped deployment.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/comtrade-viewer/backend/internal/logging"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"COMTRADEViewer"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Decoding configuration
	Decoding DecodingConfig `xml:"Decoding"`

	Logging logging.Config `xml:"Logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port          int    `xml:"Port"`
	BindAddress   string `xml:"BindAddress"`
	EnableCORS    bool   `xml:"EnableCORS"`
	AllowOrigins  string `xml:"AllowOrigins"`
	ReadTimeout   int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout  int    `xml:"WriteTimeoutSeconds"`
	BodyLimit     string `xml:"BodyLimit"`
	EnableMetrics bool   `xml:"EnableMetrics"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory    string `xml:"DataDirectory"`
	UploadsDirectory string `xml:"UploadsDirectory"`
	TempDirectory    string `xml:"TempDirectory"`
}

// DecodingConfig controls how recordings are decoded and how long sessions live.
type DecodingConfig struct {
	CriticalTimestamp      bool `xml:"CriticalTimestamp"`
	MaxSessions            int  `xml:"MaxSessions"`
	SessionTimeoutMinutes  int  `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes"`
	SampleBatchSize        int  `xml:"SampleBatchSize"`
	AllowPathReferences    bool `xml:"AllowPathReferences"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:          8089,
			BindAddress:   "0.0.0.0",
			EnableCORS:    true,
			AllowOrigins:  "*",
			ReadTimeout:   30,
			WriteTimeout:  30,
			BodyLimit:     "512M",
			EnableMetrics: true,
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
			TempDirectory:    "./data/temp",
		},
		Decoding: DecodingConfig{
			CriticalTimestamp:      false,
			MaxSessions:            10,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			SampleBatchSize:        50000,
			AllowPathReferences:    false,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from XML file. A missing file is created with
// defaults. A .env file next to the config, if present, is loaded before
// environment overrides are applied.
func LoadConfig(configPath string) (*AppConfig, error) {
	configDir := filepath.Dir(configPath)
	if err := loadDotEnv(filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(configDir)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- COMTRADE Viewer Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
		c.Storage.TempDirectory = filepath.Join(dataDir, "temp")
	}

	if tempDir := os.Getenv("DUCKDB_TEMP_DIR"); tempDir != "" {
		c.Storage.TempDirectory = tempDir
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if critical := os.Getenv("COMTRADE_CRITICAL_TIMESTAMP"); critical != "" {
		if v, err := strconv.ParseBool(critical); err == nil {
			c.Decoding.CriticalTimestamp = v
		}
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.UploadsDirectory,
		&c.Storage.TempDirectory,
	} {
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// Validate rejects settings the server cannot run with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Decoding.MaxSessions <= 0 {
		return fmt.Errorf("invalid max sessions: %d", c.Decoding.MaxSessions)
	}
	if c.Decoding.SampleBatchSize <= 0 {
		return fmt.Errorf("invalid sample batch size: %d", c.Decoding.SampleBatchSize)
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SessionTimeout returns how long an idle decode session is kept.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Decoding.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often expired sessions are swept.
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Decoding.CleanupIntervalMinutes) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
		c.Storage.TempDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
