package model

import (
	"fmt"
	"strings"
	"time"
)

// Signal is the per-frame classification the tracking engine emits for one target.
type Signal string

const (
	SignalFound Signal = "found"
	SignalLost  Signal = "lost"
)

// ParseSignal accepts "found"/"lost" and the engine's event names
// "targetFound"/"targetLost", case-insensitively.
func ParseSignal(s string) (Signal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "found", "targetfound":
		return SignalFound, nil
	case "lost", "targetlost":
		return SignalLost, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSignal, s)
	}
}

// Frame is one tracking-engine report for one target on one processed video frame.
type Frame struct {
	EventID  string    // unique id, used to drop redelivered frames
	TargetID int       // target slot index
	Signal   Signal    // found or lost
	Pose     *Pose     // raw pose, present only when the engine supplied one
	TS       time.Time // capture time reported by the engine
}
