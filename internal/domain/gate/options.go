package gate

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithLossToleranceFrames sets how many consecutive lost signals hide a visible target.
func WithLossToleranceFrames(frames uint) Option {
	return func(g *Gate) {
		g.lossToleranceFrames = frames
	}
}

// WithMinConfidenceThreshold records the minimum confidence setting.
// The gate reports it but never consults it.
func WithMinConfidenceThreshold(threshold float64) Option {
	return func(g *Gate) {
		g.minConfidenceThreshold = threshold
	}
}

// WithStabilityFrames records the stability window setting.
// The gate reports it but never consults it.
func WithStabilityFrames(frames uint) Option {
	return func(g *Gate) {
		g.stabilityFrames = frames
	}
}
