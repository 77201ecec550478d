package charset

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/cortext/doctree/internal/position"
)

// Set is an ordered multiset of Characters sorted by Position's total
// order, always bracketed by the left and right sentinels. It is not safe
// for concurrent use; the owning Document serializes all access.
//
// tombstones records the identity of every Character ever removed,
// independent of whether it was present at removal time. Without this, a
// delete that arrives before its matching insert (or a duplicate insert
// redelivered after a delete) would resurrect the character — breaking
// convergence under out-of-order or duplicate delivery, which Document.Apply
// promises to tolerate.
type Set struct {
	items      []Character
	tombstones map[string]struct{}
}

// New returns a Set containing only the two sentinels for the given
// base_bits.
func New(baseBits uint8) *Set {
	if baseBits == 0 {
		baseBits = position.DefaultBaseBits
	}
	s := &Set{items: make([]Character, 0, 2), tombstones: make(map[string]struct{})}
	s.items = append(s.items,
		Character{Glyph: "", Position: position.LeftSentinel(baseBits)},
		Character{Glyph: "", Position: position.RightSentinel(baseBits)},
	)
	return s
}

// identityKey encodes the (digits, sites, clock) triple that defines a
// Character's identity into a string suitable as a map key.
func identityKey(c Character) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(c.Clock, 36))
	b.WriteByte(':')
	for i, d := range c.Position.Digits {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(d), 36))
	}
	b.WriteByte(':')
	for i, site := range c.Position.Sites {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(site), 36))
	}
	return b.String()
}

// Len returns the number of Characters including both sentinels.
func (s *Set) Len() int { return len(s.items) }

// At returns the Character at slot i (0 is always the left sentinel).
func (s *Set) At(i int) Character { return s.items[i] }

func cmpByPosition(c Character, pos position.Position) int {
	return position.Compare(c.Position, pos)
}

// search returns the index of pos if present, and whether it was found.
func (s *Set) search(pos position.Position) (int, bool) {
	return slices.BinarySearchFunc(s.items, pos, cmpByPosition)
}

// Insert adds c into the ordered set, keeping it sorted by Position.
// If a Character with the same identity (Position and clock) is already
// present, or was already removed by a RemoveIdentity that raced ahead of
// it, Insert is a no-op and reports false (nothing changed).
func (s *Set) Insert(c Character) (inserted bool) {
	if _, dead := s.tombstones[identityKey(c)]; dead {
		return false
	}
	i, found := s.search(c.Position)
	if found {
		return false
	}
	s.insertAt(i, c)
	return true
}

// RemoveIdentity removes the Character matching target's Position and
// clock, if present, and permanently tombstones that identity so a
// not-yet-arrived or redelivered insert of the same Character can never
// resurrect it. It reports whether a present Character was removed.
func (s *Set) RemoveIdentity(target Character) bool {
	s.tombstones[identityKey(target)] = struct{}{}

	i, found := s.search(target.Position)
	if !found {
		return false
	}
	if !s.items[i].SameIdentity(target) {
		return false
	}
	s.removeAt(i)
	return true
}

// IndexOf returns the slot of the Character with target's identity, if
// present.
func (s *Set) IndexOf(target Character) (int, bool) {
	i, found := s.search(target.Position)
	if !found || !s.items[i].SameIdentity(target) {
		return 0, false
	}
	return i, true
}

// insertAt inserts c at slot i, shifting the tail one position right; it
// reuses spare capacity the way a popcount-compressed sparse array does
// before falling back to append.
func (s *Set) insertAt(i int, c Character) {
	if len(s.items) < cap(s.items) {
		s.items = s.items[:len(s.items)+1]
	} else {
		var zero Character
		s.items = append(s.items, zero)
	}
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = c
}

// removeAt deletes the Character at slot i, shifting the tail one position
// left and clearing the vacated slot so it does not keep a glyph alive.
func (s *Set) removeAt(i int) {
	var zero Character
	nl := len(s.items) - 1
	copy(s.items[i:], s.items[i+1:])
	s.items[nl] = zero
	s.items = s.items[:nl]
}

// All iterates every Character in Position order, sentinels included.
func (s *Set) All() iter.Seq[Character] {
	return func(yield func(Character) bool) {
		for _, c := range s.items {
			if !yield(c) {
				return
			}
		}
	}
}
