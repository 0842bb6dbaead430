package node

import (
	"context"
	"time"

	"github.com/fablechain/fablechain/internal/chain"
	"github.com/fablechain/fablechain/internal/rpcclient"
)

// registerWithTracker performs the best-effort tracker registration of
// spec.md §4.2 step 2. Failure is logged, never fatal — the sync worker
// retries on its next tick.
func (n *Node) registerWithTracker(ctx context.Context) {
	if n.cfg.TrackerURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, rpcclient.DefaultTimeout)
	defer cancel()

	var resp trackerPeersResponse
	err := n.rpc.PostJSON(ctx, n.cfg.TrackerURL+"/register", addressRequest{Address: n.addr}, &resp)
	if err != nil {
		n.logger.Warn("tracker registration failed, will retry next sync tick", "err", err)
		return
	}
	n.peers.Replace(resp.Peers)
	n.logger.Info("registered with tracker", "peers", len(resp.Peers))
}

// syncWorker is the periodic background task of spec.md §4.2 step 4: every
// sync_interval seconds it refreshes peers from the tracker and performs a
// chain-sync pass. It is also nudged immediately by an orphan or
// linkage-mismatch rejection in /receive_block (spec.md §4.3).
func (n *Node) syncWorker(ctx context.Context) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.registerWithTracker(ctx)
			n.syncPass(ctx)
		case <-n.syncNudge():
			n.syncPass(ctx)
		}
	}
}

// syncNudge returns the one-slot channel requestSync sends on; it is ready
// to receive only while an immediate sync request is pending.
func (n *Node) syncNudge() <-chan struct{} {
	return n.nudgeCh
}

// requestSync asks the sync worker to perform an extra chain-sync pass as
// soon as possible, used for the orphan and linkage-mismatch cases of
// spec.md §4.3. Non-blocking: a pending request is not duplicated.
func (n *Node) requestSync() {
	select {
	case n.nudgeCh <- struct{}{}:
	default:
	}
}

// syncPass implements the chain-sync pass of spec.md §4.3: poll every
// cached peer's /get_chain with a bounded timeout, validate each candidate
// end-to-end, stage the longest, and adopt it only if strictly longer than
// the local chain (ties keep the local chain).
func (n *Node) syncPass(ctx context.Context) {
	peers := n.peers.Snapshot()
	if len(peers) == 0 {
		return
	}

	n.mu.RLock()
	localLen := n.chain.Len()
	n.mu.RUnlock()

	var best *chain.Chain
	for _, addr := range peers {
		candidate, ok := n.fetchPeerChain(ctx, addr)
		if !ok {
			continue
		}
		if err := chain.ValidateChain(candidate.Blocks, n.cfg.Difficulty); err != nil {
			n.logger.Warn("ignoring invalid candidate chain from peer", "peer", addr, "err", err)
			continue
		}
		if candidate.Len() <= localLen {
			continue
		}
		if best == nil || candidate.Len() > best.Len() {
			c := candidate
			best = &c
		}
	}

	if best == nil {
		return
	}

	n.mu.Lock()
	if best.Len() <= n.chain.Len() {
		// local chain grew (e.g. a local mine) while we were polling peers;
		// local wins on equal length per spec.md §4.3.
		n.mu.Unlock()
		return
	}
	adopted := *best
	var fresh []chain.Block
	for i, b := range adopted.Blocks {
		if i >= n.chain.Len() || n.chain.Blocks[i].Hash != b.Hash {
			fresh = append(fresh, b)
		}
	}
	n.chain.Replace(adopted)
	n.purgeMempoolForChain(adopted)
	for _, b := range adopted.Blocks {
		n.seen.Add(b.Hash, struct{}{})
	}
	n.bumpTipVersion()
	snapshot := n.chain.Clone()
	n.mu.Unlock()

	n.logger.Info("adopted longer peer chain", "length", adopted.Len())
	if err := n.store.Save(snapshot); err != nil {
		n.logger.Warn("failed to persist chain after sync adoption", "err", err)
	}
	for _, b := range fresh {
		n.hub.Broadcast(b)
	}
}

// purgeMempoolForChain removes, per block in newly-adopted order, the first
// mempool entry matching that block's data — spec.md §4.3's "Mempool
// entries whose data appears in any newly-adopted block are purged
// (first-match FIFO, per block)". Must be called with n.mu held.
func (n *Node) purgeMempoolForChain(c chain.Chain) {
	for _, b := range c.Blocks {
		n.pool.RemoveFirstMatch(b.Data)
	}
}

// fetchPeerChain GETs addr's /get_chain with a bounded timeout, per
// spec.md §4.3 step 1. Timeout or error causes the peer to be skipped for
// this pass.
func (n *Node) fetchPeerChain(ctx context.Context, addr string) (chain.Chain, bool) {
	var resp chainResponse
	url := "http://" + addr + "/get_chain"
	if err := n.rpc.GetJSON(ctx, url, &resp); err != nil {
		n.logger.Debug("skipping unreachable peer during sync", "peer", addr, "err", err)
		return chain.Chain{}, false
	}
	return chain.New(resp.Chain), true
}
