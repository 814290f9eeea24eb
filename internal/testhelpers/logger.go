package testhelpers

import (
	"github.com/jonesrussell/job-scraper/internal/logger"
)

// NewTestLogger creates a logger suitable for testing (discards output).
func NewTestLogger() logger.Logger {
	return logger.NewNop()
}
