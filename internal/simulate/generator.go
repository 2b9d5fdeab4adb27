package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/arsteady/internal/domain/gate"
	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/internal/domain/smoothing"
	"github.com/okian/arsteady/internal/domain/tracking"
	"github.com/okian/arsteady/pkg/logger"
)

// Script shape constants.
const (
	maxFoundRun     = 24
	longDropExtra   = 6
	positionSpread  = 2.0
	minDepth        = 1.0
	signalFound     = "found"
	signalLost      = "lost"
	expectTolerance = 1e-9
)

// GenerateScripts builds one script per target. Every script starts with
// tolerance lost frames, which hide the target whatever state the service
// holds, followed by found runs with pose jitter separated by short and
// long dropouts.
func GenerateScripts(ctx context.Context, config *Config, stats *Stats) ([]Script, error) {
	if config.LossTolerance == 0 {
		return nil, fmt.Errorf("generate: loss tolerance must be at least one frame")
	}
	logger.Get().Info(ctx, "generating frame scripts",
		logger.Int("targets", config.Targets),
		logger.Int("framesPerTarget", config.FramesPerTarget),
		logger.Uint("lossTolerance", config.LossTolerance),
	)

	scripts := make([]Script, config.Targets)
	for t := 0; t < config.Targets; t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during script generation: %w", err)
		}
		rng := rand.New(rand.NewPCG(config.Seed, uint64(t)))
		script, err := generateScript(rng, t, config)
		if err != nil {
			return nil, fmt.Errorf("failed to generate script for target %d: %w", t, err)
		}
		scripts[t] = script
		stats.FramesGenerated += len(script.Frames)
	}

	logger.Get().Info(ctx, "generated scripts successfully", logger.Int("frames", stats.FramesGenerated))
	return scripts, nil
}

func generateScript(rng *rand.Rand, target int, config *Config) (Script, error) {
	tolerance := int(config.LossTolerance)
	base := model.Vec3{
		(rng.Float64() - 0.5) * positionSpread,
		(rng.Float64() - 0.5) * positionSpread,
		-minDepth - rng.Float64()*positionSpread,
	}

	script := Script{Target: target}
	add := func(signal string, pose *model.Pose) {
		script.Frames = append(script.Frames, FrameRequest{
			EventID:  uuid.NewString(),
			TargetID: target,
			Signal:   signal,
			Pose:     pose,
			TS:       time.Now().UTC().Format(time.RFC3339Nano),
		})
	}

	for i := 0; i < tolerance; i++ {
		add(signalLost, nil)
	}

	total := tolerance + config.FramesPerTarget
	for len(script.Frames) < total {
		run := 1 + rng.IntN(maxFoundRun)
		for i := 0; i < run && len(script.Frames) < total; i++ {
			add(signalFound, &model.Pose{Position: jitter(rng, base, config.Jitter)})
		}

		var gap int
		if tolerance == 1 || rng.Float64() < config.LongDropRatio {
			gap = tolerance + rng.IntN(longDropExtra)
			script.Expected.LongDropouts++
		} else {
			gap = 1 + rng.IntN(tolerance-1)
			script.Expected.ShortDropouts++
		}
		for i := 0; i < gap && len(script.Frames) < total; i++ {
			add(signalLost, nil)
		}
	}

	exp, err := expect(script.Frames, config.LossTolerance, config.SmoothingFactor)
	if err != nil {
		return Script{}, err
	}
	exp.ShortDropouts = script.Expected.ShortDropouts
	exp.LongDropouts = script.Expected.LongDropouts
	script.Expected = exp
	return script, nil
}

// expect replays frames through a local orchestrator configured like the
// service and returns the state it ends in.
func expect(frames []FrameRequest, tolerance uint, factor float64) (Expectation, error) {
	g, err := gate.New(gate.WithLossToleranceFrames(tolerance))
	if err != nil {
		return Expectation{}, err
	}
	sm, err := smoothing.New(smoothing.WithSmoothingFactor(factor))
	if err != nil {
		return Expectation{}, err
	}
	orch, err := tracking.New(1, nil,
		tracking.WithGate(g),
		tracking.WithSmoother(sm),
		tracking.WithLogger(logger.Nop()),
	)
	if err != nil {
		return Expectation{}, err
	}

	ctx := context.Background()
	for _, f := range frames {
		sig, err := model.ParseSignal(f.Signal)
		if err != nil {
			return Expectation{}, err
		}
		if err := orch.HandleFrame(ctx, model.Frame{Signal: sig, Pose: f.Pose}); err != nil {
			return Expectation{}, err
		}
	}

	snap, err := orch.Snapshot(0)
	if err != nil {
		return Expectation{}, err
	}
	return Expectation{
		Visible:              snap.Gate.IsTracking,
		FramesSinceDetection: snap.Gate.FramesSinceDetection,
		Confidence:           snap.Gate.Confidence,
		Position:             snap.Pose.Position,
	}, nil
}

func jitter(rng *rand.Rand, base model.Vec3, sigma float64) *model.Vec3 {
	return model.V(
		base.X()+rng.NormFloat64()*sigma,
		base.Y()+rng.NormFloat64()*sigma,
		base.Z()+rng.NormFloat64()*sigma,
	)
}
