// logger.go
// Package timingleak provides shared utilities for the go_timing_leak package.
package timingleak

import (
	"github.com/baditaflorin/go_timing_leak/internal/adapters/logger"
	"github.com/baditaflorin/go_timing_leak/internal/ports"
	"github.com/baditaflorin/l"
)

// NewLoggerFrom wraps an existing l.Logger for use with WithLogger.
func NewLoggerFrom(lg l.Logger) ports.Logger {
	return logger.FromExisting(lg)
}
