// Package alloc implements the CRDT identifier allocator: given two
// neighbouring Positions, it produces a fresh Position strictly between
// them, using a per-depth "boundary+/boundary-" strategy that, once
// decided for a depth on a replica, never changes — this keeps identifier
// growth amortised-logarithmic instead of oscillating between the two
// edges of the free interval.
package alloc

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/bits-and-blooms/bitset"

	"github.com/cortext/doctree/internal/position"
)

// Boundary caps how far from an edge a freshly allocated slot may land,
// so a later insert at the opposite edge does not force an immediate
// deepening.
const Boundary = 5

// ErrDepthExhausted is returned when no depth up to MaxDepth yields a free
// slot between the two bounds. This is expected only on pathological,
// adversarial interleavings of inserts at the very same visual position.
var ErrDepthExhausted = errors.New("doctree: identifier space exhausted")

// Allocator owns one replica's site id, its injected PRNG, and the
// per-depth boundary-direction strategy. Its lifetime matches the owning
// Document's; SetSite resets the strategy, which is only safe before the
// first local edit.
type Allocator struct {
	site     position.SiteID
	baseBits uint8
	rng      *rand.Rand

	// decided[d] is set once a boundary direction has been picked for
	// depth d; value[d] holds that direction (bit set = boundary+).
	// Depths are 1-indexed but stored 0-indexed (depth d -> bit d-1).
	decided *bitset.BitSet
	value   *bitset.BitSet
}

// New returns an Allocator for site, with base_bits controlling the tree
// fan-out at depth 1, and rng as the source of allocation-step randomness.
// rng must not be nil; callers that need determinism (tests, replay)
// should seed it explicitly, e.g. rand.New(rand.NewPCG(seed, seed)).
func New(site position.SiteID, baseBits uint8, rng *rand.Rand) *Allocator {
	if baseBits == 0 {
		baseBits = position.DefaultBaseBits
	}
	maxDepth := uint(position.MaxDepthFor(baseBits))
	return &Allocator{
		site:     site,
		baseBits: baseBits,
		rng:      rng,
		decided:  bitset.New(maxDepth),
		value:    bitset.New(maxDepth),
	}
}

// Site returns the replica id this allocator stamps onto fresh Positions.
func (a *Allocator) Site() position.SiteID { return a.site }

// SetSite reassigns the local site id and resets the strategy map. Callers
// must only do this before the first local edit of the owning Document;
// the Allocator itself does not enforce that.
func (a *Allocator) SetSite(site position.SiteID) {
	a.site = site
	maxDepth := uint(position.MaxDepthFor(a.baseBits))
	a.decided = bitset.New(maxDepth)
	a.value = bitset.New(maxDepth)
}

// strategy reports the boundary direction for depth (true = boundary+),
// picking and memoising one fair coin flip the first time depth is seen.
func (a *Allocator) strategy(depth int) bool {
	bit := uint(depth - 1)
	if !a.decided.Test(bit) {
		a.decided.Set(bit)
		if a.rng.Uint64()&1 == 1 {
			a.value.Set(bit)
		}
	}
	return a.value.Test(bit)
}

// Allocate returns a fresh Position r with p < r < q.
//
// It panics if p and q are equal (same digits and same sites): that can
// only happen if the caller failed to consult distinct neighbours from
// the ordered set, which is a caller bug, not a runtime condition to
// recover from. It returns ErrDepthExhausted if no depth up to MaxDepth
// has a free slot.
func (a *Allocator) Allocate(p, q position.Position) (position.Position, error) {
	if position.Equal(p, q) {
		panic(fmt.Sprintf("doctree: alloc.Allocate called with equal bounds %+v", p))
	}

	maxDepth := position.MaxDepthFor(a.baseBits)

	var free int64
	var equalPrefix bool
	depth := 0
	for free < 1 {
		depth++
		if depth > maxDepth {
			return position.Position{}, ErrDepthExhausted
		}
		free, equalPrefix = position.Interval(p, q, depth)
	}

	step := min(int64(Boundary), free)
	allocStep := uint32(a.rng.IntN(int(step))) + 1

	var n uint32
	if a.strategy(depth) || equalPrefix {
		n = p.ToInt(depth) + allocStep
	} else {
		n = q.ToInt(depth) - allocStep
	}

	sites := make([]position.SiteID, depth)
	copy(sites, p.Sites)
	for i := len(p.Sites); i < depth; i++ {
		sites[i] = a.site
	}
	sites[depth-1] = a.site

	return position.FromInt(n, depth, sites, a.baseBits), nil
}
