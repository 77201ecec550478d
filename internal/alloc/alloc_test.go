package alloc

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/cortext/doctree/internal/position"
)

func newTestAllocator(site position.SiteID, seed uint64) *Allocator {
	return New(site, 5, rand.New(rand.NewPCG(seed, seed)))
}

func TestAllocateBetweenNeighbours(t *testing.T) {
	// spec.md §8 scenario 5.
	p := position.New([]position.Digit{0}, []position.SiteID{-1}, 5)
	q := position.New([]position.Digit{0, 1}, []position.SiteID{-1, 0}, 5)

	for seed := uint64(0); seed < 50; seed++ {
		a := newTestAllocator(2, seed)
		r, err := a.Allocate(p, q)
		if err != nil {
			t.Fatalf("seed %d: Allocate: %v", seed, err)
		}
		if !position.Less(p, r) || !position.Less(r, q) {
			t.Fatalf("seed %d: allocated %+v not strictly between %+v and %+v", seed, r, p, q)
		}
	}
}

func TestAllocateEqualBoundsPanics(t *testing.T) {
	p := position.New([]position.Digit{4}, []position.SiteID{1}, 5)
	a := newTestAllocator(1, 7)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for equal bounds")
		}
	}()
	a.Allocate(p, p)
}

func TestAllocateUniquenessAndOrdering(t *testing.T) {
	rng := rand.New(rand.NewPCG(99, 99))
	a := New(1, 5, rng)

	left := position.LeftSentinel(5)
	right := position.RightSentinel(5)

	seen := map[string]bool{}
	prev, next := left, right
	for i := 0; i < 300; i++ {
		r, err := a.Allocate(prev, next)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if !position.Less(prev, r) || !position.Less(r, next) {
			t.Fatalf("iteration %d: %+v not strictly between %+v and %+v", i, r, prev, next)
		}
		key := positionKey(r)
		if seen[key] {
			t.Fatalf("iteration %d: duplicate position %+v", i, r)
		}
		seen[key] = true
		// Keep narrowing the right edge, like repeated inserts at the
		// same visual position (a front-of-document "type in reverse").
		next = r
	}
}

func TestAllocateDepthExhausted(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	a := New(1, 5, rng)

	// p and q are MaxDepth levels deep with identical sites, and their
	// digits are all 0 except q's deepest one, which is 1: p=[...0],
	// q=[...1]. They project to the same integer at every depth below
	// MaxDepth (interval -1) and to adjacent integers at MaxDepth
	// (interval 0), so no depth up to MaxDepth has a free slot.
	maxDepth := position.MaxDepthFor(5)
	digits := make([]position.Digit, maxDepth)
	sites := make([]position.SiteID, maxDepth)
	for i := range digits {
		sites[i] = 1
	}
	pDigits := append([]position.Digit(nil), digits...)
	qDigits := append([]position.Digit(nil), digits...)
	qDigits[maxDepth-1] = 1 // adjacent integers at the deepest level

	p := position.New(pDigits, sites, 5)
	q := position.New(qDigits, sites, 5)

	_, err := a.Allocate(p, q)
	if !errors.Is(err, ErrDepthExhausted) {
		t.Fatalf("err = %v, want ErrDepthExhausted", err)
	}
}

func TestStrategyIsMemoizedPerDepth(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 11))
	a := New(1, 5, rng)

	first := a.strategy(3)
	for i := 0; i < 20; i++ {
		if got := a.strategy(3); got != first {
			t.Fatalf("strategy(3) changed after being decided: got %v, want %v", got, first)
		}
	}
}

func TestSetSiteResetsStrategy(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	a := New(1, 5, rng)
	_ = a.strategy(4)
	if !a.decided.Test(3) {
		t.Fatalf("expected depth 4 to be decided")
	}
	a.SetSite(2)
	if a.decided.Test(3) {
		t.Fatalf("SetSite must reset the strategy map")
	}
	if a.Site() != 2 {
		t.Fatalf("Site() = %d, want 2", a.Site())
	}
}

func positionKey(p position.Position) string {
	key := make([]byte, 0, len(p.Digits)*8)
	for i := range p.Digits {
		key = append(key, byte(p.Digits[i]), byte(p.Digits[i]>>8), byte(p.Digits[i]>>16), byte(p.Digits[i]>>24))
		key = append(key, byte(p.Sites[i]), byte(p.Sites[i]>>8), byte(p.Sites[i]>>16), byte(p.Sites[i]>>24))
	}
	return string(key)
}
