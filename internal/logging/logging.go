// Package logging builds the zap logger used by the server and CLI.
package logging

import (
	"go.uber.org/zap"
)

// Config holds logging configuration
type Config struct {
	Level       string `xml:"level" json:"level"`
	Format      string `xml:"format" json:"format"` // "json" or "console"
	OutputPath  string `xml:"outputPath" json:"output_path"`
	Development bool   `xml:"development" json:"development"`
}

// New creates a zap logger from config. Unknown levels fall back to info.
func New(config Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if config.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	if config.OutputPath != "" {
		zapConfig.OutputPaths = []string{config.OutputPath}
	}

	return zapConfig.Build()
}

// NewDefault creates a console logger at info level, falling back to a no-op logger.
func NewDefault() *zap.Logger {
	logger, err := New(Config{Level: "info", Format: "console"})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Session returns a child logger tagged with a decode session ID.
func Session(l *zap.Logger, sessionID string) *zap.Logger {
	return l.With(zap.String("session", sessionID))
}
