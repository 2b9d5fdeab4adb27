package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrPaused       = errors.New("session paused")
	ErrBackpressure = errors.New("frame queue full")
)
