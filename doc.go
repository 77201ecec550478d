// Package doctree implements the collaborative document engine at the
// heart of a multi-user text editor: a Commutative Replicated Data Type
// (CRDT) that represents shared text as an ordered sequence of characters
// bearing globally unique, densely allocatable tree-path identifiers.
//
// Any number of replicas can insert and delete characters concurrently,
// exchange the resulting Patches through an unreliable best-effort
// channel in any order, and converge to the same visible text without
// central coordination. The algorithm is the one described in
// "Logoot: A Scalable Optimistic Replication Algorithm for Collaborative
// Editing on P2P Networks" (Weiss, Urso, Molli).
//
// A Document is the single entry point: it consults a local Allocator
// (internal/alloc) to mint fresh Positions (internal/position) between
// existing neighbours, keeps them in an ordered set (internal/charset),
// and exchanges mutations with other replicas as canonical, key-sorted
// JSON Patches (internal/patch).
//
// The terminal user interface, the network transport and its
// authentication envelope, server-side storage and sharing, and
// author-colour rendering are all external collaborators: this package
// exposes the interfaces they need (Insert, Delete, Apply, Locate, Text,
// Authors, PatchSet), a few read accessors (Len, CharAt, Clock,
// PatchSetSorted, Site) plus SetSite, and makes no assumption about any
// of them.
package doctree
