package gate

import "errors"

// Sentinel kinds for gate errors.
var (
	ErrInvalidConfig = errors.New("gate: invalid config")
)
