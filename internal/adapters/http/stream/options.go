package stream

import (
	"time"

	"github.com/okian/arsteady/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithSendBuffer sets how many commands may queue per client before it is
// dropped as too slow.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithPingPeriod sets how often clients are pinged. The pong deadline is
// derived from it.
func WithPingPeriod(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingPeriod = d
			h.pongWait = d * 10 / 9
		}
	}
}

// WithInitialState sets a function whose result is sent to every client
// right after it connects.
func WithInitialState(fn func() any) Option {
	return func(h *Hub) {
		h.initialState = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
