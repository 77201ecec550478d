package doctree

import "math/rand/v2"

// config holds NewDocument's configurable knobs (spec.md §6.3). All
// replicas of one Document must agree on BaseBits; Apply rejects a
// remote patch whose digits exceed the local BaseBits' bound as malformed
// rather than silently reinterpreting it.
type config struct {
	baseBits uint8
	rng      *rand.Rand
}

// Option configures a new Document.
type Option func(*config)

// WithBaseBits overrides the default tree fan-out exponent (5) at depth
// 1. Every replica exchanging patches for one document must use the same
// value.
func WithBaseBits(b uint8) Option {
	return func(c *config) { c.baseBits = b }
}

// WithRand injects the Allocator's source of allocation-step randomness.
// Tests and replay tooling that need determinism should pass a seeded
// generator, e.g. rand.New(rand.NewPCG(seed, seed)). The zero value
// (nil) makes NewDocument seed one from the runtime's default source.
func WithRand(rng *rand.Rand) Option {
	return func(c *config) { c.rng = rng }
}

func newConfig(opts []Option) config {
	c := config{baseBits: 0}
	for _, opt := range opts {
		opt(&c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}
