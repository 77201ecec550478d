package patch

import (
	"errors"
	"testing"

	"github.com/cortext/doctree/internal/position"
)

func TestEncodeCanonicalKeyOrder(t *testing.T) {
	p := Patch{
		Op:     Insert,
		Glyph:  "x",
		Digits: []position.Digit{3, 1},
		Sites:  []position.SiteID{1, 2},
		Clock:  5,
	}
	got := string(Encode(p))
	want := `{"char":"x","clock":5,"op":"i","pos":[3,1],"sites":[1,2]}`
	if got != want {
		t.Fatalf("Encode = %s, want %s", got, want)
	}
}

func TestEncodeEmptyGlyphAndSlices(t *testing.T) {
	p := Patch{Op: Delete, Clock: 0}
	got := string(Encode(p))
	want := `{"char":"","clock":0,"op":"d","pos":[],"sites":[]}`
	if got != want {
		t.Fatalf("Encode = %s, want %s", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	original := Patch{
		Op:     Insert,
		Glyph:  "q",
		Digits: []position.Digit{0, 17, 3},
		Sites:  []position.SiteID{-1, 4, 4},
		Clock:  42,
	}
	encoded := Encode(original)
	decoded, err := Decode(encoded, 5)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Op != original.Op || decoded.Glyph != original.Glyph || decoded.Clock != original.Clock {
		t.Fatalf("decoded = %+v, want %+v", decoded, original)
	}
	reencoded := Encode(decoded)
	if string(reencoded) != string(encoded) {
		t.Fatalf("re-encoding not byte-identical: %s vs %s", reencoded, encoded)
	}
}

func TestDecodeRejectsMissingKey(t *testing.T) {
	raw := []byte(`{"char":"x","clock":1,"op":"i","pos":[0]}`) // sites missing
	if _, err := Decode(raw, 5); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeRejectsUnknownKey(t *testing.T) {
	raw := []byte(`{"char":"x","clock":1,"op":"i","pos":[],"sites":[],"extra":true}`)
	if _, err := Decode(raw, 5); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeRejectsBadOp(t *testing.T) {
	raw := []byte(`{"char":"x","clock":1,"op":"z","pos":[],"sites":[]}`)
	if _, err := Decode(raw, 5); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeRejectsMismatchedLengths(t *testing.T) {
	raw := []byte(`{"char":"x","clock":1,"op":"i","pos":[1,2],"sites":[0]}`)
	if _, err := Decode(raw, 5); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeRejectsDigitOutOfBound(t *testing.T) {
	// base_bits=5: depth 1 bound is 2^5-1=31.
	raw := []byte(`{"char":"x","clock":1,"op":"i","pos":[32],"sites":[0]}`)
	if _, err := Decode(raw, 5); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeRejectsWrongType(t *testing.T) {
	raw := []byte(`{"char":"x","clock":"not-a-number","op":"i","pos":[],"sites":[]}`)
	if _, err := Decode(raw, 5); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeAcceptsSentinelSite(t *testing.T) {
	raw := []byte(`{"char":"","clock":0,"op":"i","pos":[0],"sites":[-1]}`)
	p, err := Decode(raw, 5)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Sites[0] != position.SentinelSite {
		t.Fatalf("Sites[0] = %d, want SentinelSite", p.Sites[0])
	}
}
