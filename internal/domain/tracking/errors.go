package tracking

import "errors"

var (
	// ErrMissingEntity is returned by a Renderer that has no overlay entity
	// for the target. The orchestrator treats it as a no-op.
	ErrMissingEntity = errors.New("tracking: overlay entity missing")

	ErrUnknownTarget = errors.New("tracking: unknown target")
	ErrInvalidConfig = errors.New("tracking: invalid config")
)
