package blockgraph

import "github.com/regraft/regraft/internal/hash"

// internTable deduplicates repeated name strings (block names, label names,
// compiland paths) without maintaining a shadow reference count. Requesting
// the same content twice returns the same stored instance.
//
// Entries are bucketed by xxHash64 of the content; buckets chain on the rare
// collision.
type internTable struct {
	buckets map[uint64][]string
	count   int
}

func newInternTable() *internTable {
	return &internTable{buckets: make(map[uint64][]string)}
}

// intern returns the canonical stored instance of s, storing it first if it
// has not been seen.
func (t *internTable) intern(s string) string {
	if s == "" {
		return ""
	}

	key := hash.ID(s)
	for _, stored := range t.buckets[key] {
		if stored == s {
			return stored
		}
	}

	t.buckets[key] = append(t.buckets[key], s)
	t.count++

	return s
}

// size returns the number of distinct strings stored.
func (t *internTable) size() int { return t.count }
