package scene

import "github.com/okian/arsteady/pkg/logger"

// Option applies a configuration option to the Scene.
type Option func(*Scene)

// WithMounted mounts an overlay entity for each given target at construction.
func WithMounted(targets ...int) Option {
	return func(s *Scene) {
		for _, t := range targets {
			s.entities[t] = newEntity()
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scene) {
		if l != nil {
			s.logger = l
		}
	}
}
