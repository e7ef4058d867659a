package smoketest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/rackline/ladder/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "smoke_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the smoke test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Ladder Smoke Test Tool
======================

Drives the ladder engine end to end: registers competitors, walks
challenges through venue negotiation and lock, submits both score
reports, and verifies the ladder stays a clean permutation.

Usage:
  go run cmd/smoke/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -competitors int
        Number of competitors to register (default 16)
  -rounds int
        Number of challenge rounds to drive (default 40)
  -workers int
        Number of concurrent registration workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -dispute float
        Fraction of rounds that submit mismatched scores (default 0.1)
  -log string
        Log file for test output (default: smoke_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/smoke/main.go

  # A longer run against a remote instance
  go run cmd/smoke/main.go -competitors 64 -rounds 500 -url http://localhost:8080

  # No disputes, verbose ladder dump at the end
  go run cmd/smoke/main.go -dispute 0 -verbose
`)
}
