package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/arsteady/internal/simulate"
)

// Default configuration constants.
const (
	defaultTargets        = 4
	defaultFrames         = 500
	defaultDuplicateRatio = 0.05
	defaultLongDropRatio  = 0.3
	defaultJitter         = 0.02
	defaultTimeout        = 10 * time.Second
	defaultSettleTimeout  = 10 * time.Second
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		targets    = flag.Int("targets", defaultTargets, "Number of targets to drive")
		frames     = flag.Int("frames", defaultFrames, "Frames per target")
		tolerance  = flag.Uint("tolerance", 0, "Gate loss tolerance; 0 reads it from the service")
		factor     = flag.Float64("factor", 0, "Smoothing factor; 0 reads it from the service")
		duplicates = flag.Float64("duplicates", defaultDuplicateRatio, "Fraction of frames delivered twice")
		longDrops  = flag.Float64("long-drops", defaultLongDropRatio, "Fraction of dropouts at least as long as the tolerance")
		jitter     = flag.Float64("jitter", defaultJitter, "Position noise standard deviation")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
		workers    = flag.Int("workers", runtime.NumCPU(), "Targets driven concurrently")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettleTimeout, "How long to wait for the service to apply every frame")
		outputFile = flag.String("output", "", "Output file for generated scripts")
		logFile    = flag.String("log", "", "Log file for simulator output")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:         *baseURL,
		Targets:         *targets,
		FramesPerTarget: *frames,
		LossTolerance:   *tolerance,
		SmoothingFactor: *factor,
		DuplicateRatio:  *duplicates,
		LongDropRatio:   *longDrops,
		Jitter:          *jitter,
		Seed:            *seed,
		Workers:         max(1, *workers),
		Timeout:         *timeout,
		SettleTimeout:   *settle,
		OutputFile:      *outputFile,
		Verbose:         *verbose,
	}

	if err := simulate.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: cancel is called explicitly
	}
}
