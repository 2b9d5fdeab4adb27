package simulate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/arsteady/pkg/logger"
)

const pollInterval = 50 * time.Millisecond

// ErrMismatch reports targets whose final state differs from the script's
// expectation.
var ErrMismatch = errors.New("target state mismatch")

// verifyTargets polls GET /targets until every scripted target matches its
// expectation or the settle timeout expires.
func verifyTargets(ctx context.Context, config *Config, scripts []Script, stats *Stats) error {
	logger.Get().Info(ctx, "verifying target states", logger.Int("targets", len(scripts)))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/targets"
	deadline := time.Now().Add(config.SettleTimeout)

	var mismatches []error
	for {
		var views []TargetView
		if err := client.getJSON(ctx, url, &views); err != nil {
			return fmt.Errorf("failed to read targets: %w", err)
		}
		mismatches = compareTargets(scripts, views)
		if len(mismatches) == 0 || time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	stats.TargetsMismatch = len(mismatches)
	stats.TargetsVerified = len(scripts) - len(mismatches)
	for _, err := range mismatches {
		logger.Get().Warn(ctx, "target mismatch", logger.Error(err))
	}
	if len(mismatches) > 0 {
		return errors.Join(mismatches...)
	}

	logger.Get().Info(ctx, "all targets match", logger.Int("targets", stats.TargetsVerified))
	return nil
}

// compareTargets returns one error per script whose target differs.
func compareTargets(scripts []Script, views []TargetView) []error {
	byTarget := make(map[int]TargetView, len(views))
	for _, v := range views {
		byTarget[v.Target] = v
	}

	var out []error
	for _, s := range scripts {
		v, ok := byTarget[s.Target]
		if !ok {
			out = append(out, fmt.Errorf("%w: target %d missing from service", ErrMismatch, s.Target))
			continue
		}
		if err := compareTarget(s.Expected, v); err != nil {
			out = append(out, fmt.Errorf("%w: target %d: %w", ErrMismatch, s.Target, err))
		}
	}
	return out
}

func compareTarget(exp Expectation, v TargetView) error { //nolint:gocritic // hugeParam: views travel by value
	switch {
	case v.Gate.IsTracking != exp.Visible:
		return fmt.Errorf("visible %t, want %t", v.Gate.IsTracking, exp.Visible)
	case v.Gate.FramesSinceDetection != exp.FramesSinceDetection:
		return fmt.Errorf("frames since detection %d, want %d", v.Gate.FramesSinceDetection, exp.FramesSinceDetection)
	case math.Abs(v.Gate.Confidence-exp.Confidence) > expectTolerance:
		return fmt.Errorf("confidence %.3f, want %.3f", v.Gate.Confidence, exp.Confidence)
	}
	if exp.Position == nil {
		return nil
	}
	if v.Pose.Position == nil {
		return errors.New("position missing")
	}
	if !v.Pose.Position.ApproxEqualThreshold(*exp.Position, expectTolerance) {
		return fmt.Errorf("position %v, want %v", *v.Pose.Position, *exp.Position)
	}
	return nil
}
