// Package charset holds the ordered multiset of Characters that makes up a
// Document's visible text, keyed by Position's total order.
package charset

import "github.com/cortext/doctree/internal/position"

// Character is one element of a document: a glyph (possibly empty, for the
// two sentinels), the Position that orders it, and the local clock value
// of the replica that created it.
type Character struct {
	Glyph    string
	Position position.Position
	Clock    uint64
}

// Author is the replica that authored this Character's Position — the
// last element of its site sequence.
func (c Character) Author() position.SiteID {
	sites := c.Position.Sites
	if len(sites) == 0 {
		return position.SentinelSite
	}
	return sites[len(sites)-1]
}

// SameIdentity reports whether c and other refer to the same Character
// identifier — same Position digits and sites, same clock — regardless of
// glyph. Set.RemoveIdentity and Set.IndexOf use this to confirm that the
// Character found at a Position is the delete or lookup target.
func (c Character) SameIdentity(other Character) bool {
	return c.Clock == other.Clock && position.Equal(c.Position, other.Position)
}
