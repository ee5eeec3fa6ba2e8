package broadphase

import (
	"fmt"
	"sort"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
)

// PairStatus tells how a candidate pair relates to the previous QueryPairs call.
type PairStatus int

const (
	// PairNew is a pair whose fat boxes started overlapping since the previous query.
	PairNew PairStatus = iota
	// PairPersisted is a pair that was already reported by the previous query.
	PairPersisted
	// PairEnded is a pair reported by the previous query whose boxes no longer overlap, or one of whose
	// proxies was removed. It is reported once.
	PairEnded
)

func (s PairStatus) String() string {
	switch s {
	case PairNew:
		return "new"
	case PairPersisted:
		return "persisted"
	case PairEnded:
		return "ended"
	default:
		return fmt.Sprintf("pair_status(%d)", int(s))
	}
}

// CandidatePair is two proxies whose fat boxes overlap. A is always the smaller id.
type CandidatePair struct {
	A, B   ProxyID
	Status PairStatus
	// Generation is the query generation in which the pair was first seen.
	Generation uint64
	// BoundsChanged is false for a persisted pair whose proxies were not updated since the previous
	// query, so a narrow phase result computed then still holds.
	BoundsChanged bool
}

func (p CandidatePair) String() string {
	return fmt.Sprintf("pair(%d, %d, %v)", p.A, p.B, p.Status)
}

type pairKey struct {
	a, b ProxyID
}

func newPairKey(a, b ProxyID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

type pairEntry struct {
	firstSeen uint64
	lastSeen  uint64
	// versions of the two proxies at lastSeen
	versionA, versionB uint64
}

// pairCache remembers the pairs of the previous query in first seen order.
type pairCache struct {
	mu         sync.Mutex
	generation uint64
	pairs      *orderedmap.OrderedMap[pairKey, *pairEntry]
}

func newPairCache() *pairCache {
	return &pairCache{pairs: orderedmap.NewOrderedMap[pairKey, *pairEntry]()}
}

// overlap is an overlapping pair along with the current versions of its proxies.
type overlap struct {
	key                pairKey
	versionA, versionB uint64
}

// update folds the overlaps of a new query into the cache and returns the pairs sorted by ids.
func (c *pairCache) update(overlaps []overlap) []CandidatePair {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	gen := c.generation

	out := make([]CandidatePair, 0, len(overlaps))
	for _, o := range overlaps {
		entry, ok := c.pairs.Get(o.key)
		if !ok {
			c.pairs.Set(o.key, &pairEntry{firstSeen: gen, lastSeen: gen, versionA: o.versionA, versionB: o.versionB})
			out = append(out, CandidatePair{A: o.key.a, B: o.key.b, Status: PairNew, Generation: gen, BoundsChanged: true})
			continue
		}
		changed := entry.versionA != o.versionA || entry.versionB != o.versionB
		entry.lastSeen, entry.versionA, entry.versionB = gen, o.versionA, o.versionB
		out = append(out, CandidatePair{
			A: o.key.a, B: o.key.b,
			Status:        PairPersisted,
			Generation:    entry.firstSeen,
			BoundsChanged: changed,
		})
	}

	var ended []pairKey
	for el := c.pairs.Front(); el != nil; el = el.Next() {
		if el.Value.lastSeen != gen {
			ended = append(ended, el.Key)
			out = append(out, CandidatePair{
				A: el.Key.a, B: el.Key.b,
				Status:        PairEnded,
				Generation:    el.Value.firstSeen,
				BoundsChanged: true,
			})
		}
	}
	for _, key := range ended {
		c.pairs.Delete(key)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

func (c *pairCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pairs.Len()
}
