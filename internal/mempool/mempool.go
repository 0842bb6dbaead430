// Package mempool implements the FIFO pool of pending, opaque payload
// strings described in spec.md §3. It is not safe for concurrent use on its
// own — the node package guards it with the same read-write lock that
// guards the chain, per spec.md §5.
package mempool

// Pool is an ordered, duplicate-tolerant FIFO queue of pending payloads.
type Pool struct {
	entries []string
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{}
}

// Push appends data to the back of the pool.
func (p *Pool) Push(data string) {
	p.entries = append(p.entries, data)
}

// PushFront re-queues data at the front of the pool, used when a mining
// attempt is aborted and its payload must be retried first (spec.md §4.4).
func (p *Pool) PushFront(data string) {
	p.entries = append([]string{data}, p.entries...)
}

// Len returns the number of pending payloads.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Front returns the oldest pending payload without removing it, and
// whether the pool was non-empty.
func (p *Pool) Front() (string, bool) {
	if len(p.entries) == 0 {
		return "", false
	}
	return p.entries[0], true
}

// PopFront removes and returns the oldest pending payload.
func (p *Pool) PopFront() (string, bool) {
	if len(p.entries) == 0 {
		return "", false
	}
	v := p.entries[0]
	p.entries = p.entries[1:]
	return v, true
}

// RemoveFirstMatch removes the first entry equal to data, if any. It
// implements the "first occurrence only, FIFO" dedup rule of spec.md §3/§4.3
// applied when a block carrying that payload is accepted.
func (p *Pool) RemoveFirstMatch(data string) {
	for i, e := range p.entries {
		if e == data {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return
		}
	}
}

// Snapshot returns a copy of the pending entries, for diagnostics.
func (p *Pool) Snapshot() []string {
	cp := make([]string, len(p.entries))
	copy(cp, p.entries)
	return cp
}
