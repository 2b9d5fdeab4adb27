package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/arsteady/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes a complete simulation: it reads the tracking configuration
// from the service, generates scripts, posts them and verifies the final
// target states.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting arsteady simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("targets", config.Targets),
		logger.Int("framesPerTarget", config.FramesPerTarget),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("seed", config.Seed),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Adopt the service's tracking configuration
	if err := loadServiceConfig(ctx, config); err != nil {
		return fmt.Errorf("service config read failed: %w", err)
	}

	// Step 3: Make sure frames are applied
	if err := resumeSession(ctx, config); err != nil {
		return fmt.Errorf("session resume failed: %w", err)
	}

	// Step 4: Generate scripts
	scripts, err := GenerateScripts(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("script generation failed: %w", err)
	}

	// Step 5: Save scripts to file
	if config.OutputFile != "" {
		if err := saveScriptsToFile(ctx, config.OutputFile, scripts); err != nil {
			logger.Get().Warn(ctx, "failed to save scripts to file", logger.Error(err))
		}
	}

	// Step 6: Submit frames
	if err := submitScripts(ctx, config, scripts, stats); err != nil {
		return fmt.Errorf("frame submission failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyTargets(ctx, config, scripts, stats); err != nil {
		displayFinalStats(stats)
		return fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// loadServiceConfig fills unset tracking parameters from /stats and checks
// the service has enough targets.
func loadServiceConfig(ctx context.Context, config *Config) error {
	var stats struct {
		TargetCount         int     `json:"targetCount"`
		LossToleranceFrames uint    `json:"lossToleranceFrames"`
		SmoothingFactor     float64 `json:"smoothingFactor"`
		Started             bool    `json:"started"`
	}
	if err := newHTTPClient(config.Timeout).getJSON(ctx, config.BaseURL+"/stats", &stats); err != nil {
		return err
	}
	if !stats.Started {
		return fmt.Errorf("service is not started")
	}
	if config.Targets > stats.TargetCount {
		return fmt.Errorf("service tracks %d targets, %d requested", stats.TargetCount, config.Targets)
	}
	if config.LossTolerance == 0 {
		config.LossTolerance = stats.LossToleranceFrames
	}
	if config.SmoothingFactor == 0 {
		config.SmoothingFactor = stats.SmoothingFactor
	}

	logger.Get().Info(ctx, "service configuration",
		logger.Int("targetCount", stats.TargetCount),
		logger.Uint("lossTolerance", config.LossTolerance),
		logger.Float64("smoothingFactor", config.SmoothingFactor),
	)
	return nil
}

func resumeSession(ctx context.Context, config *Config) error {
	resp, err := newHTTPClient(config.Timeout).Post(ctx, config.BaseURL+"/session/resume", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("resume returned status %d", resp.StatusCode)
	}
	return nil
}

// saveScriptsToFile saves the generated scripts to a JSON file.
func saveScriptsToFile(ctx context.Context, filename string, scripts []Script) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(scripts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scripts: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "scripts saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var framesPerSecond float64
	if stats.Duration > 0 {
		framesPerSecond = float64(stats.FramesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("framesGenerated", stats.FramesGenerated),
		logger.Int("framesSubmitted", stats.FramesSubmitted),
		logger.Int("framesAccepted", stats.FramesAccepted),
		logger.Int("framesDuplicate", stats.FramesDuplicate),
		logger.Int("framesRetried", stats.FramesRetried),
		logger.Int("framesFailed", stats.FramesFailed),
		logger.Int("targetsVerified", stats.TargetsVerified),
		logger.Int("targetsMismatch", stats.TargetsMismatch),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("framesPerSecond", framesPerSecond))
}
