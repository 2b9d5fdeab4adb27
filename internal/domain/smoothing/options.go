package smoothing

// Option applies a configuration option to the Smoother.
type Option func(*Smoother)

// WithSmoothingFactor sets the weight given to each new sample. 1 disables
// smoothing; values near 0 follow the raw pose slowly.
func WithSmoothingFactor(factor float64) Option {
	return func(s *Smoother) {
		s.factor = factor
	}
}
