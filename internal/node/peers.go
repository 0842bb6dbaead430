package node

import (
	"sync"

	mapset "github.com/deckarep/golang-set"
)

// peerCache holds the most recently fetched peer list, per spec.md §3's
// "Peer cache (node-side)". It is backed by a deckarep/golang-set.Set, the
// same set library the teacher's miner/worker.go uses for ancestor/family/
// uncle membership tracking, repurposed here to hold the current peer set.
// Replace swaps in a fresh set; Snapshot copies it out for a sync pass or
// a broadcast fan-out.
type peerCache struct {
	mu   sync.RWMutex
	set  mapset.Set
}

func newPeerCache() *peerCache {
	return &peerCache{set: mapset.NewSet()}
}

// Replace overwrites the cache with addrs, dropping anything not present in
// the latest tracker response.
func (c *peerCache) Replace(addrs []string) {
	next := mapset.NewSet()
	for _, a := range addrs {
		next.Add(a)
	}
	c.mu.Lock()
	c.set = next
	c.mu.Unlock()
}

// Snapshot returns the cached peer addresses as a slice.
func (c *peerCache) Snapshot() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, c.set.Cardinality())
	for a := range c.set.Iter() {
		out = append(out, a.(string))
	}
	return out
}

// Len reports the number of cached peers.
func (c *peerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set.Cardinality()
}
