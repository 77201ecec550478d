package doctree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cortext/doctree/internal/alloc"
	"github.com/cortext/doctree/internal/charset"
	"github.com/cortext/doctree/internal/patch"
	"github.com/cortext/doctree/internal/position"
)

// Document is a single replica's view of a shared text: an ordered
// multiset of Characters bracketed by two sentinels, a local Allocator,
// and a monotonic clock.
//
// Document is safe for a single owner and unsafe for concurrent readers
// and writers: there is no internal locking. The host must serialize all
// calls on one Document, e.g. by running them on one goroutine or behind
// an external mutex; independent Documents (one per client process) need
// no coordination with each other at all.
//
// A Document must not be copied after first use.
type Document struct {
	_ noCopy

	site     position.SiteID
	baseBits uint8
	clock    uint64
	chars    *charset.Set
	alloc    *alloc.Allocator
}

// NewDocument returns a ready-to-use Document for the given site id, with
// two sentinel Characters already present.
func NewDocument(site int32, opts ...Option) *Document {
	cfg := newConfig(opts)
	baseBits := cfg.baseBits
	if baseBits == 0 {
		baseBits = position.DefaultBaseBits
	}
	s := position.SiteID(site)
	return &Document{
		site:     s,
		baseBits: baseBits,
		chars:    charset.New(baseBits),
		alloc:    alloc.New(s, baseBits, cfg.rng),
	}
}

// SetSite reassigns the local replica's site id and resets the
// Allocator's per-depth strategy map. Per spec.md §4.3 this is only safe
// before the first local edit; Document does not enforce that, matching
// the host-facing API's documented "undefined if violated" contract.
func (d *Document) SetSite(site int32) {
	d.site = position.SiteID(site)
	d.alloc.SetSite(d.site)
}

// Site returns the local replica's site id.
func (d *Document) Site() int32 { return int32(d.site) }

// Len returns the visible length of the document, excluding sentinels.
func (d *Document) Len() int { return d.chars.Len() - 2 }

// Clock returns the current value of the local monotonic clock.
func (d *Document) Clock() uint64 { return d.clock }

// Insert places ch at visibleIndex (0-based, excluding sentinels) and
// returns the encoded patch describing the insertion.
//
// It returns ErrOutOfRange if visibleIndex is not in [0, Len()], and
// ErrDepthExhausted if the Allocator cannot find a free identifier slot.
func (d *Document) Insert(visibleIndex int, ch string) ([]byte, error) {
	if visibleIndex < 0 || visibleIndex > d.Len() {
		return nil, ErrOutOfRange
	}

	d.clock++
	p := d.chars.At(visibleIndex).Position
	q := d.chars.At(visibleIndex + 1).Position

	r, err := d.alloc.Allocate(p, q)
	if err != nil {
		if errors.Is(err, alloc.ErrDepthExhausted) {
			return nil, fmt.Errorf("%w: %v", ErrDepthExhausted, err)
		}
		return nil, err
	}

	newChar := charset.Character{Glyph: ch, Position: r, Clock: d.clock}
	d.chars.Insert(newChar)

	return encodeInsert(newChar), nil
}

// Delete removes the character at visibleIndex and returns the encoded
// delete patch, carrying the removed Character's original glyph,
// position and clock so remote replicas can find the same entry by
// identifier.
//
// It returns ErrOutOfRange if visibleIndex is not in [0, Len()).
func (d *Document) Delete(visibleIndex int) ([]byte, error) {
	if visibleIndex < 0 || visibleIndex >= d.Len() {
		return nil, ErrOutOfRange
	}

	d.clock++
	old := d.chars.At(visibleIndex + 1)
	d.chars.RemoveIdentity(old)

	return encodeDelete(old), nil
}

// Apply decodes and applies a remote patch. Applying an insert whose
// identifier (position and clock) is already present is a no-op; applying
// a delete whose target is absent is a no-op. Both make Apply idempotent
// under duplicate or out-of-order delivery.
func (d *Document) Apply(raw []byte) error {
	p, err := patch.Decode(raw, d.baseBits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPatch, err)
	}

	char := charset.Character{
		Glyph:    p.Glyph,
		Position: position.New(p.Digits, p.Sites, d.baseBits),
		Clock:    p.Clock,
	}

	switch p.Op {
	case patch.Insert:
		d.chars.Insert(char)
	case patch.Delete:
		d.chars.RemoveIdentity(char)
	}

	return nil
}

// Locate decodes patch and reports the visible index of the Character it
// names, using the same 0-based, sentinel-excluding indexing as
// Insert/Delete. It reports found=false if no Character with that
// identifier is currently present (e.g. a delete already applied, or an
// insert not yet delivered).
func (d *Document) Locate(raw []byte) (visibleIndex int, found bool, err error) {
	p, decErr := patch.Decode(raw, d.baseBits)
	if decErr != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrMalformedPatch, decErr)
	}

	char := charset.Character{
		Glyph:    p.Glyph,
		Position: position.New(p.Digits, p.Sites, d.baseBits),
		Clock:    p.Clock,
	}

	idx, ok := d.chars.IndexOf(char)
	if !ok {
		return 0, false, nil
	}
	return idx - 1, true, nil
}

// Text returns the concatenation of non-sentinel glyphs in Position
// order.
func (d *Document) Text() string {
	var b strings.Builder
	for c := range d.chars.All() {
		b.WriteString(c.Glyph)
	}
	return b.String()
}

// CharAt returns the rune at visibleIndex without materializing the rest
// of the text. It reports ok=false if the index is out of range.
func (d *Document) CharAt(visibleIndex int) (r rune, ok bool) {
	if visibleIndex < 0 || visibleIndex >= d.Len() {
		return 0, false
	}
	glyph := d.chars.At(visibleIndex + 1).Glyph
	if glyph == "" {
		return 0, false
	}
	for _, r := range glyph {
		return r, true
	}
	return 0, false
}

// Authors returns the author site id of every Character including the
// two sentinels, in Position order, for the rendering collaborator.
func (d *Document) Authors() []int32 {
	authors := make([]int32, 0, d.chars.Len())
	for c := range d.chars.All() {
		authors = append(authors, int32(c.Author()))
	}
	return authors
}

// PatchSet returns the set of insert patches for every non-sentinel
// Character, keyed by their own canonical encoding — true set semantics,
// sufficient to rehydrate this Document on a fresh replica via repeated
// Apply calls in any order.
func (d *Document) PatchSet() map[string][]byte {
	out := make(map[string][]byte, d.Len())
	for i := 1; i < d.chars.Len()-1; i++ {
		enc := encodeInsert(d.chars.At(i))
		out[string(enc)] = enc
	}
	return out
}

// PatchSetSorted is PatchSet's contents ordered by Position, for hosts
// that need a reproducible rehydration order (e.g. writing a session
// snapshot).
func (d *Document) PatchSetSorted() [][]byte {
	out := make([][]byte, 0, d.Len())
	for i := 1; i < d.chars.Len()-1; i++ {
		out = append(out, encodeInsert(d.chars.At(i)))
	}
	return out
}

func encodeInsert(c charset.Character) []byte {
	return patch.Encode(patch.Patch{
		Op:     patch.Insert,
		Glyph:  c.Glyph,
		Digits: c.Position.Digits,
		Sites:  c.Position.Sites,
		Clock:  c.Clock,
	})
}

func encodeDelete(c charset.Character) []byte {
	return patch.Encode(patch.Patch{
		Op:     patch.Delete,
		Glyph:  c.Glyph,
		Digits: c.Position.Digits,
		Sites:  c.Position.Sites,
		Clock:  c.Clock,
	})
}

// noCopy may be embedded (as a blank field, never embedded directly due to
// its Lock/Unlock methods) in structs which must not be copied after
// first use, so `go vet`'s -copylocks check flags accidental copies.
//
//	type Document struct {
//		_ noCopy
//		...
//	}
//
// See https://golang.org/issues/8005#issuecomment-190753527 for details.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
