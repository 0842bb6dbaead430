package node

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fablechain/fablechain/internal/chain"
	"github.com/fablechain/fablechain/internal/consensus/powmine"
)

// minerWorker is the background mining task of spec.md §4.2 step 4: while
// auto-mining is enabled and the mempool is non-empty, it mines blocks one
// at a time, restarting against the new tip whenever the chain changes
// underneath it (spec.md §4.4's cooperative cancellation).
func (n *Node) minerWorker(ctx context.Context) {
	defer n.wg.Done()

	for {
		interval := time.Duration(atomic.LoadInt64(&n.mineIntervalNano))
		if interval <= 0 {
			interval = DefaultMineInterval
		}
		select {
		case <-n.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		if atomic.LoadInt32(&n.autoMine) == 0 {
			continue
		}
		n.tryMineOne(ctx)
	}
}

// tryMineOne attempts to mine exactly one block from the mempool's front
// payload, restarting against a new tip if the chain changes mid-attempt.
func (n *Node) tryMineOne(ctx context.Context) {
	n.miningMu.Lock()
	defer n.miningMu.Unlock()

	for {
		n.mu.Lock()
		data, ok := n.pool.PopFront()
		tip := n.chain.Tip()
		version := n.currentTipVersion()
		stop := n.cancelMining
		n.mu.Unlock()

		if !ok || tip == nil {
			return
		}

		index := tip.Index + 1
		prevHash := tip.Hash
		difficulty := n.cfg.Difficulty

		done := make(chan struct{})
		var mined chain.Block
		var mineErr error
		go func() {
			defer close(done)
			mined, mineErr = powmine.Mine(index, data, prevHash, difficulty, stop)
		}()

		select {
		case <-n.stopCh:
			<-done
			return
		case <-ctx.Done():
			<-done
			return
		case <-done:
		}

		if mineErr != nil {
			// Aborted: the tip changed underneath us. Requeue the in-flight
			// payload at the mempool front, per spec.md §4.4, and restart
			// against the new tip.
			n.mu.Lock()
			n.pool.PushFront(data)
			n.mu.Unlock()
			continue
		}

		if n.tryAppendMined(mined, version) {
			n.broadcastBlock(mined)
			return
		}
		// Someone else (receive_block / sync) moved the tip while we were
		// mining; requeue the payload at the front and retry against the
		// new tip.
		n.mu.Lock()
		n.pool.PushFront(data)
		n.mu.Unlock()
	}
}

// mineWithData services a blocking POST /mine call: it mines exactly one
// block carrying data, restarting against a new tip if the chain changes
// mid-attempt, and returns an error only if the node is shutting down or
// ctx is canceled before a block could be produced.
func (n *Node) mineWithData(ctx context.Context, data string) (chain.Block, error) {
	n.miningMu.Lock()
	defer n.miningMu.Unlock()

	for {
		select {
		case <-n.stopCh:
			return chain.Block{}, errNodeShuttingDown
		default:
		}

		n.mu.RLock()
		tip := n.chain.Tip()
		version := n.currentTipVersion()
		stop := n.cancelMining
		n.mu.RUnlock()

		if tip == nil {
			return chain.Block{}, errNodeShuttingDown
		}

		done := make(chan struct{})
		var mined chain.Block
		var mineErr error
		go func() {
			defer close(done)
			mined, mineErr = powmine.Mine(tip.Index+1, data, tip.Hash, n.cfg.Difficulty, stop)
		}()

		select {
		case <-n.stopCh:
			<-done
			return chain.Block{}, errNodeShuttingDown
		case <-ctx.Done():
			<-done
			return chain.Block{}, ctx.Err()
		case <-done:
		}

		if mineErr != nil {
			continue
		}

		n.mu.Lock()
		if n.currentTipVersion() != version {
			n.mu.Unlock()
			continue
		}
		curTip := n.chain.Tip()
		if curTip == nil || chain.ValidateBlock(&mined, curTip, n.cfg.Difficulty) != nil {
			n.mu.Unlock()
			continue
		}
		n.chain.Append(mined)
		n.pool.RemoveFirstMatch(mined.Data)
		n.seen.Add(mined.Hash, struct{}{})
		n.bumpTipVersion()
		snapshot := n.chain.Clone()
		n.mu.Unlock()

		if err := n.store.Save(snapshot); err != nil {
			n.logger.Warn("failed to persist chain after mining", "err", err)
		}
		n.logger.Info("mined block via /mine", "index", mined.Index, "hash", mined.Hash)
		n.hub.Broadcast(mined)
		n.broadcastBlock(mined)
		return mined, nil
	}
}

// tryAppendMined appends a freshly mined block if the chain tip has not
// moved since mining started (version still matches). The packed payload
// was already taken off the mempool by the caller (tryMineOne's PopFront),
// so the mempool is left untouched. It returns false if the tip moved, in
// which case the caller must retry against the new tip.
func (n *Node) tryAppendMined(b chain.Block, expectedVersion uint64) bool {
	n.mu.Lock()
	if n.currentTipVersion() != expectedVersion {
		n.mu.Unlock()
		return false
	}
	tip := n.chain.Tip()
	if tip == nil || chain.ValidateBlock(&b, tip, n.cfg.Difficulty) != nil {
		n.mu.Unlock()
		return false
	}
	n.chain.Append(b)
	n.seen.Add(b.Hash, struct{}{})
	n.bumpTipVersion()
	snapshot := n.chain.Clone()
	n.mu.Unlock()

	if err := n.store.Save(snapshot); err != nil {
		n.logger.Warn("failed to persist chain after mining", "err", err)
	}
	n.logger.Info("mined block", "index", b.Index, "hash", b.Hash)
	n.hub.Broadcast(b)
	return true
}
