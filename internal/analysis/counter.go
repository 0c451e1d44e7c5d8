package analysis

import (
	"sort"

	"github.com/google/uuid"
)

// counter counts keys in first-seen order and keeps the incident ids that
// contributed to each key, so a key's evidence is always the evidence of
// its own count.
type counter[K comparable] struct {
	order  []K
	groups map[K]*group
}

type group struct {
	count int
	ids   []uuid.UUID
}

type entry[K comparable] struct {
	key   K
	count int
	ids   []uuid.UUID
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{groups: make(map[K]*group)}
}

func (c *counter[K]) add(key K, id uuid.UUID) {
	g, ok := c.groups[key]
	if !ok {
		g = &group{}
		c.groups[key] = g
		c.order = append(c.order, key)
	}
	g.count++
	g.ids = append(g.ids, id)
}

func (c *counter[K]) total() int {
	n := 0
	for _, g := range c.groups {
		n += g.count
	}
	return n
}

// mostCommon returns every key by count descending. Equal counts keep their
// first-seen order.
func (c *counter[K]) mostCommon() []entry[K] {
	entries := make([]entry[K], 0, len(c.order))
	for _, k := range c.order {
		g := c.groups[k]
		entries = append(entries, entry[K]{key: k, count: g.count, ids: g.ids})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].count > entries[j].count
	})
	return entries
}

// top returns the highest-count key, the earliest seen on ties.
func (c *counter[K]) top() (entry[K], bool) {
	var best entry[K]
	found := false
	for _, k := range c.order {
		g := c.groups[k]
		if !found || g.count > best.count {
			best = entry[K]{key: k, count: g.count, ids: g.ids}
			found = true
		}
	}
	return best, found
}

// evidence returns at most MaxEvidenceIDs ids as a fresh slice.
func evidence(ids []uuid.UUID) []uuid.UUID {
	n := len(ids)
	if n > MaxEvidenceIDs {
		n = MaxEvidenceIDs
	}
	out := make([]uuid.UUID, n)
	copy(out, ids[:n])
	return out
}
