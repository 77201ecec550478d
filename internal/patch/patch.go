// Package patch implements the bijective wire codec for CRDT document
// operations: a canonical, key-sorted JSON text object carrying enough
// information (glyph, position, clock) for a remote replica to apply an
// insert or locate a delete target by identifier alone.
package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cortext/doctree/internal/position"
)

// Kind distinguishes an insert from a delete patch.
type Kind string

const (
	Insert Kind = "i"
	Delete Kind = "d"
)

// ErrMalformed is wrapped by every decode failure: missing keys, wrong
// types, an unrecognised op, or digits outside their depth bound.
var ErrMalformed = errors.New("doctree: malformed patch")

// Patch is the decoded form of one wire operation.
type Patch struct {
	Op     Kind
	Glyph  string
	Digits []position.Digit
	Sites  []position.SiteID
	Clock  uint64
}

// wireForm mirrors the canonical wire shape. Field order matters: declaring
// them alphabetically (char, clock, op, pos, sites) makes encoding/json's
// struct-field-order marshaling emit keys in the canonical lexicographic
// order the wire format requires, with no custom encoder needed.
type wireForm struct {
	Char  string            `json:"char"`
	Clock uint64            `json:"clock"`
	Op    Kind              `json:"op"`
	Pos   []position.Digit  `json:"pos"`
	Sites []position.SiteID `json:"sites"`
}

// requiredKeys are the only keys a canonical patch may carry, in their
// canonical order.
var requiredKeys = [5]string{"char", "clock", "op", "pos", "sites"}

// Encode renders p in canonical form: sorted keys, no trailing whitespace,
// numeric values without leading zeros — exactly what encoding/json
// produces for a struct whose fields are already declared in that order.
func Encode(p Patch) []byte {
	w := wireForm{
		Char:  p.Glyph,
		Clock: p.Clock,
		Op:    p.Op,
		Pos:   p.Digits,
		Sites: p.Sites,
	}
	if w.Pos == nil {
		w.Pos = []position.Digit{}
	}
	if w.Sites == nil {
		w.Sites = []position.SiteID{}
	}
	buf, err := json.Marshal(w)
	if err != nil {
		// wireForm has no type that can fail to marshal (no channels,
		// funcs, or cyclic pointers); a failure here is a logic error.
		panic(fmt.Sprintf("doctree: patch.Encode: %v", err))
	}
	return buf
}

// Decode validates and parses raw into a Patch. It returns ErrMalformed
// (wrapped with detail) for missing keys, wrong types, an op other than
// "i"/"d", or digits that exceed their depth's bit bound under baseBits.
// baseBits is the local Document's configured base_bits, needed to bound-
// check digits against the identifier space they were supposedly drawn
// from.
func Decode(raw []byte, baseBits uint8) (Patch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Patch{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			return Patch{}, fmt.Errorf("%w: missing key %q", ErrMalformed, key)
		}
	}
	if len(fields) != len(requiredKeys) {
		return Patch{}, fmt.Errorf("%w: unexpected keys in patch", ErrMalformed)
	}

	var w wireForm
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return Patch{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch w.Op {
	case Insert, Delete:
	default:
		return Patch{}, fmt.Errorf("%w: op must be \"i\" or \"d\", got %q", ErrMalformed, w.Op)
	}

	if len(w.Pos) != len(w.Sites) {
		return Patch{}, fmt.Errorf("%w: pos has %d entries, sites has %d", ErrMalformed, len(w.Pos), len(w.Sites))
	}

	if baseBits == 0 {
		baseBits = position.DefaultBaseBits
	}
	if len(w.Pos) > position.MaxDepthFor(baseBits) {
		return Patch{}, fmt.Errorf("%w: depth %d exceeds max depth %d", ErrMalformed, len(w.Pos), position.MaxDepthFor(baseBits))
	}
	for i, d := range w.Pos {
		depth := i + 1
		bound := uint32(1)<<uint(int(baseBits)+depth-1) - 1
		if d > bound {
			return Patch{}, fmt.Errorf("%w: digit %d at depth %d exceeds bound %d", ErrMalformed, d, depth, bound)
		}
	}

	return Patch{
		Op:     w.Op,
		Glyph:  w.Char,
		Digits: w.Pos,
		Sites:  w.Sites,
		Clock:  w.Clock,
	}, nil
}
