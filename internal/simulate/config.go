package simulate

import (
	"time"

	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/internal/domain/types"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Targets         int           // Number of targets to drive
	FramesPerTarget int           // Frames generated per target, excluding the reset prefix
	LossTolerance   uint          // Gate loss tolerance; 0 reads it from /stats
	SmoothingFactor float64       // Smoothing factor; 0 reads it from /stats
	DuplicateRatio  float64       // Fraction of frames posted twice
	LongDropRatio   float64       // Fraction of dropouts at least as long as the tolerance
	Jitter          float64       // Standard deviation of position noise
	Seed            uint64        // Random seed; scripts are reproducible for a fixed seed
	Workers         int           // Targets driven concurrently
	Timeout         time.Duration // HTTP request timeout
	SettleTimeout   time.Duration // How long to wait for the service to apply every frame
	OutputFile      string        // Output file for generated scripts
	Verbose         bool          // Enable verbose logging
}

// FrameRequest is the POST /frames body.
type FrameRequest struct {
	EventID  string      `json:"event_id"`
	TargetID int         `json:"target_id"`
	Signal   string      `json:"signal"`
	Pose     *model.Pose `json:"pose,omitempty"`
	TS       string      `json:"ts"`
}

// AckResponse represents the response from frame submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// TargetView is the GET /targets read shape.
type TargetView = types.TargetView

// Script is the frame sequence for one target together with the state the
// service must end in after applying it.
type Script struct {
	Target   int            `json:"target"`
	Frames   []FrameRequest `json:"frames"`
	Expected Expectation    `json:"expected"`
}

// Expectation is the final state of one target.
type Expectation struct {
	Visible              bool        `json:"visible"`
	FramesSinceDetection uint        `json:"frames_since_detection"`
	Confidence           float64     `json:"confidence"`
	Position             *model.Vec3 `json:"position,omitempty"`
	ShortDropouts        int         `json:"short_dropouts"`
	LongDropouts         int         `json:"long_dropouts"`
}

// Stats holds run statistics.
type Stats struct {
	FramesGenerated int
	FramesSubmitted int
	FramesAccepted  int
	FramesDuplicate int
	FramesRetried   int
	FramesFailed    int
	TargetsVerified int
	TargetsMismatch int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
