package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/rackline/ladder/internal/smoketest"
)

// Default configuration constants.
const (
	defaultCompetitors = 16
	defaultRounds      = 40
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultDisputeRate = 0.1
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		competitors = flag.Int("competitors", defaultCompetitors, "Number of competitors to register")
		rounds      = flag.Int("rounds", defaultRounds, "Number of challenge rounds to drive")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent registration workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		disputeRate = flag.Float64("dispute", defaultDisputeRate, "Fraction of rounds that submit mismatched scores")
		logFile     = flag.String("log", "", "Log file for test output (default: smoke_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoketest.ShowHelp()
		return
	}

	// Setup logging
	if err := smoketest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &smoketest.Config{
		BaseURL:     *baseURL,
		Competitors: *competitors,
		Rounds:      *rounds,
		Workers:     *workers,
		Timeout:     *timeout,
		DisputeRate: *disputeRate,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	if err := smoketest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Smoke test failed: " + err.Error() + "\n")
		return
	}
}
