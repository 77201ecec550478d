package doctree

import "errors"

// ErrOutOfRange is returned by Insert/Delete when the visible index is
// outside the document's current bounds.
var ErrOutOfRange = errors.New("doctree: index out of range")

// ErrMalformedPatch is returned by Apply/Locate when the supplied bytes
// do not decode to a well-formed canonical patch. Every decode failure
// from those methods wraps it, so callers can match on it with errors.Is;
// the underlying decoder's detail is kept only in the error message.
var ErrMalformedPatch = errors.New("doctree: malformed patch")

// ErrDepthExhausted is returned by Insert when the Allocator cannot find a
// free identifier slot within the configured maximum depth. This is
// expected only on pathological, adversarial insert patterns (e.g.
// thousands of concurrent inserts at the exact same visual position) and
// should be surfaced to the host UI as "document identifier space
// saturated".
var ErrDepthExhausted = errors.New("doctree: identifier space saturated")
