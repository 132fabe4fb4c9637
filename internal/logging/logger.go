// Package logging builds the arbor logger shared by every component.
package logging

import (
	"os"
	"path/filepath"

	"github.com/mj1618/gridcheck/internal/config"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const timeFormat = "15:04:05"

// New builds a logger from the logging section of the config. With no
// outputs configured it logs nothing.
func New(cfg config.LoggingConfig) arbor.ILogger {
	logger := arbor.NewLogger()

	for _, out := range cfg.Output {
		switch out {
		case "console", "stdout":
			logger = logger.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				TimeFormat: timeFormat,
				TextOutput: true,
			})
		case "file":
			path := cfg.File
			if path == "" {
				path = filepath.Join("logs", "gridcheck.log")
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   path,
				TimeFormat: timeFormat,
				MaxSize:    50 * 1024 * 1024,
				MaxBackups: 3,
				TextOutput: true,
			})
		}
	}

	return logger.WithLevelFromString(cfg.Level)
}

// Discard returns a logger that drops everything.
func Discard() arbor.ILogger {
	return arbor.NewNoOpLogger()
}
