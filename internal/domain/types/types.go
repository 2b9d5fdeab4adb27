// Package types contains the read shapes shared by the service and the API.
package types

import (
	"github.com/okian/arsteady/internal/domain/gate"
	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/internal/domain/smoothing"
)

// TargetView is everything known about one target slot.
type TargetView struct {
	Target     int             `json:"target"`
	Visibility string          `json:"visibility"`
	Gate       gate.State      `json:"gate"`
	Smoothing  smoothing.State `json:"smoothing"`
	Pose       model.Pose      `json:"pose"`
	Mounted    bool            `json:"mounted"`
	Animations []string        `json:"animations,omitempty"`
}

// Visible reports whether the gate currently shows the target.
func (v TargetView) Visible() bool { return v.Gate.IsTracking }

// Session describes the ingestion session.
type Session struct {
	Paused         bool `json:"paused"`
	TargetCount    int  `json:"target_count"`
	VisibleTargets int  `json:"visible_targets"`
}

// ClickResult reports the outcome of clicking an overlay.
type ClickResult struct {
	Target   int  `json:"target"`
	Accepted bool `json:"accepted"`
}
