package store

// Option configures a Backend at construction time.
type Option func(*options)

type options struct {
	poolSize       int
	clock          Clock
	policyMaxDepth int
}

func defaultOptions() options {
	return options{
		poolSize:       4,
		clock:          SystemClock{},
		policyMaxDepth: 64,
	}
}

// WithPoolSize caps the number of pooled connections for a SQLite
// namespace. Ignored by MemoryBackend.
func WithPoolSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// WithClock overrides the wall-clock source used to stamp
// created_at/updated_at.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithPolicyMaxDepth caps the ancestor walk used for parent-cycle
// detection.
func WithPolicyMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.policyMaxDepth = n
		}
	}
}
