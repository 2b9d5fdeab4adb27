// Package simulate drives a running service with scripted tracking-engine
// frames and verifies the final target states against a local replay.
package simulate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/arsteady/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to the console and, when logFile is set,
// to that file as well.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.InitWithWriter(w); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`arsteady simulator
==================

Posts scripted found/lost frames with pose jitter and short and long
dropouts to a running service, then checks every target ends in the state
a local replay predicts.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -targets int
        Number of targets to drive (default 4)
  -frames int
        Frames per target (default 500)
  -tolerance uint
        Gate loss tolerance; 0 reads it from the service (default 0)
  -factor float
        Smoothing factor; 0 reads it from the service (default 0)
  -duplicates float
        Fraction of frames delivered twice (default 0.05)
  -long-drops float
        Fraction of dropouts at least as long as the tolerance (default 0.3)
  -jitter float
        Position noise standard deviation (default 0.02)
  -seed uint
        Random seed (default: current time)
  -workers int
        Targets driven concurrently (default CPU cores)
  -timeout duration
        HTTP request timeout (default 10s)
  -settle duration
        How long to wait for the service to apply every frame (default 10s)
  -output string
        Output file for generated scripts
  -log string
        Log file for simulator output
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Drive the default service
  go run ./cmd/simulate

  # Reproduce a run against another address
  go run ./cmd/simulate -url http://localhost:8080 -targets 8 -seed 42
`)
}
