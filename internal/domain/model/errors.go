package model

import "errors"

// Sentinel kinds for model validation.
var (
	ErrUnknownSignal = errors.New("unknown tracking signal")
	ErrInvalidPose   = errors.New("invalid pose")
)
