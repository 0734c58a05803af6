package syncstore

import "github.com/EluvK/syncstore/store"

// Option configures a Store at construction time.
type Option func(*storeOptions)

type storeOptions struct {
	clock          store.Clock
	idGen          store.IDGenerator
	policyMaxDepth int
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		clock:          store.SystemClock{},
		idGen:          store.UUIDGenerator{},
		policyMaxDepth: 64,
	}
}

// WithClock overrides the wall-clock source used to stamp records.
func WithClock(c store.Clock) Option {
	return func(o *storeOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithIDGenerator overrides how ids are generated for records created
// without a caller-supplied id.
func WithIDGenerator(g store.IDGenerator) Option {
	return func(o *storeOptions) {
		if g != nil {
			o.idGen = g
		}
	}
}

// WithPolicyMaxDepth caps the ancestor walk used by CheckPermission
// and by parent-cycle detection in every namespace Backend.
func WithPolicyMaxDepth(n int) Option {
	return func(o *storeOptions) {
		if n > 0 {
			o.policyMaxDepth = n
		}
	}
}
