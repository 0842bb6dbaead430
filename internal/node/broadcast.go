package node

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fablechain/fablechain/internal/chain"
)

// broadcastBlock fans b out to every currently cached peer via
// POST /receive_block, per spec.md §4.3. It is called only after the chain
// write lock has been released — holding the lock across this call is
// forbidden by spec.md §5. The fan-out itself runs in the background so
// broadcastBlock never blocks its caller; the tally of the finished round
// is published to n.lastBroadcast for /status (SPEC_FULL.md §3's
// BroadcastResult).
func (n *Node) broadcastBlock(b chain.Block) {
	peers := n.peers.Snapshot()
	go n.fanOutBlock(b, peers)
}

// fanOutBlock performs one broadcast round and records its outcome.
func (n *Node) fanOutBlock(b chain.Block, peers []string) {
	var wg sync.WaitGroup
	var notified, failed int32

	for _, addr := range peers {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			ctx := context.Background()
			url := "http://" + addr + "/receive_block"
			var resp receiveBlockResponse
			if err := n.rpc.PostJSON(ctx, url, receiveBlockRequest{Block: b}, &resp); err != nil {
				n.logger.Warn("broadcast to peer failed", "peer", addr, "err", err)
				atomic.AddInt32(&failed, 1)
				return
			}
			if !resp.Accepted {
				n.logger.Debug("peer did not accept broadcast block", "peer", addr, "reason", resp.Reason)
				atomic.AddInt32(&failed, 1)
				return
			}
			atomic.AddInt32(&notified, 1)
		}(addr)
	}
	wg.Wait()

	n.setLastBroadcast(BroadcastResult{
		PeersNotified: int(notified),
		PeersFailed:   int(failed),
	})
}

// setLastBroadcast records the outcome of the most recent broadcast round,
// surfaced read-only via GET /status.
func (n *Node) setLastBroadcast(r BroadcastResult) {
	n.broadcastMu.Lock()
	n.lastBroadcast = r
	n.broadcastMu.Unlock()
}

// lastBroadcastSnapshot returns the most recently recorded broadcast tally.
func (n *Node) lastBroadcastSnapshot() BroadcastResult {
	n.broadcastMu.Lock()
	defer n.broadcastMu.Unlock()
	return n.lastBroadcast
}
