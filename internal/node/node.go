// Copyright 2017 The go-probeum Authors
// This file is part of the go-probeum library.
//
// The go-probeum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-probeum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-probeum library. If not, see <http://www.gnu.org/licenses/>.

// Package node is the long-running process described in spec.md §4.2: an
// HTTP server, a mining worker, a sync worker, a mempool, the in-memory
// chain, and a persistence adapter, all cooperating under a single
// read-write lock over (chain, mempool).
package node

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/google/uuid"

	"github.com/fablechain/fablechain/internal/chain"
	"github.com/fablechain/fablechain/internal/consensus/powmine"
	"github.com/fablechain/fablechain/internal/mempool"
	"github.com/fablechain/fablechain/internal/rpcclient"
	"github.com/fablechain/fablechain/internal/storage"
	"github.com/fablechain/fablechain/log"
)

// Config carries the command-line/config-file-derived settings a Node is
// built from. Field names mirror the CLI flags in spec.md §6.
type Config struct {
	// Host and Port are this node's own externally-reachable address, used
	// both to name its persisted chain file and to identify itself to the
	// tracker and peers.
	Host string
	Port int

	TrackerURL   string
	AutoMine     bool
	MineInterval time.Duration
	Difficulty   int
	SyncInterval time.Duration
	DataDir      string
}

// DefaultSyncInterval is how often the sync worker refreshes peers and
// performs a chain-sync pass, per spec.md §4.2.
const DefaultSyncInterval = 10 * time.Second

// DefaultMineInterval is the idle poll period of the miner worker when
// auto-mining is enabled (spec.md's auto_mine toggle).
const DefaultMineInterval = 2 * time.Second

// seenHashCacheSize bounds the recently-accepted-hash cache described in
// SPEC_FULL.md §4.3.
const seenHashCacheSize = 256

// Node is one participant in the fablechain network.
type Node struct {
	cfg    Config
	addr   string
	nodeID uuid.UUID
	logger log.Logger

	mu    sync.RWMutex // guards chain and pool together, per spec.md §5
	chain chain.Chain
	pool  *mempool.Pool

	store *storage.Store
	rpc   *rpcclient.Client
	peers *peerCache
	seen  *lru.Cache // recently accepted block hashes, dedup optimization

	miningMu         sync.Mutex // serializes mining attempts: only one of the auto-miner or a /mine call runs at a time
	autoMine         int32 // atomic bool
	mineIntervalNano int64 // atomic time.Duration, the auto-mine idle poll period
	tipVersion       uint64 // atomic counter, bumped on every chain mutation
	cancelMining     chan struct{} // closed+replaced to interrupt an in-flight mining attempt

	hub     *wsHub
	nudgeCh chan struct{}

	broadcastMu   sync.Mutex // guards lastBroadcast
	lastBroadcast BroadcastResult

	srv    *http.Server
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New bootstraps a Node from cfg: loads its chain from disk, or mines a
// fresh genesis if none is found, per spec.md §4.2 step 1.
func New(cfg Config) (*Node, error) {
	if cfg.Difficulty <= 0 {
		cfg.Difficulty = powmine.DefaultDifficulty
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.MineInterval <= 0 {
		cfg.MineInterval = DefaultMineInterval
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	store, err := storage.New(cfg.DataDir, addr)
	if err != nil {
		return nil, err
	}
	seen, err := lru.New(seenHashCacheSize)
	if err != nil {
		return nil, fmt.Errorf("node: build seen-hash cache: %w", err)
	}

	n := &Node{
		cfg:          cfg,
		addr:         addr,
		nodeID:       uuid.New(),
		logger:       log.New("component", "node", "address", addr),
		pool:         mempool.New(),
		store:        store,
		rpc:          rpcclient.New(rpcclient.DefaultTimeout),
		peers:        newPeerCache(),
		seen:         seen,
		cancelMining: make(chan struct{}),
		hub:          newWSHub(),
		nudgeCh:      make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
	}
	if cfg.AutoMine {
		n.autoMine = 1
	}
	atomic.StoreInt64(&n.mineIntervalNano, int64(cfg.MineInterval))

	if loaded, ok := store.Load(); ok && chain.ValidateChain(loaded.Blocks, cfg.Difficulty) == nil {
		n.chain = loaded
		n.logger.Info("loaded persisted chain", "length", n.chain.Len())
	} else {
		n.logger.Info("no usable persisted chain found, mining genesis", "difficulty", cfg.Difficulty)
		genesis := powmine.MineGenesis(cfg.Difficulty)
		n.chain = chain.New([]chain.Block{genesis})
		if err := store.Save(n.chain); err != nil {
			n.logger.Warn("failed to persist freshly mined genesis", "err", err)
		}
	}
	for _, b := range n.chain.Blocks {
		n.seen.Add(b.Hash, struct{}{})
	}
	return n, nil
}

// Address returns this node's own host:port identifier.
func (n *Node) Address() string { return n.addr }

// Run starts the three steady-state workers (spec.md §4.2 step 4) and
// blocks serving HTTP on n.addr until ctx is canceled. It registers with
// the tracker and performs an initial sync before returning control to the
// HTTP server.
func (n *Node) Run(ctx context.Context) error {
	n.registerWithTracker(ctx)
	n.syncPass(ctx)

	n.wg.Add(2)
	go n.syncWorker(ctx)
	go n.minerWorker(ctx)

	n.srv = n.httpServer()
	errCh := make(chan error, 1)
	go func() {
		n.logger.Info("http server listening", "address", n.addr, "node_id", n.nodeID)
		if err := n.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			n.Shutdown(context.Background())
			return err
		}
	}

	return n.Shutdown(context.Background())
}

// Shutdown signals the workers to exit, drains in-flight HTTP requests,
// best-effort unregisters from the tracker, and persists the final chain,
// per spec.md §4.2 step 5 and §5's "server worker drains in-flight
// requests".
func (n *Node) Shutdown(ctx context.Context) error {
	select {
	case <-n.stopCh:
		// already shutting down
	default:
		close(n.stopCh)
	}

	if n.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		n.srv.Shutdown(shutdownCtx)
		cancel()
	}
	n.wg.Wait()

	unregisterCtx, cancel := context.WithTimeout(ctx, rpcclient.DefaultTimeout)
	defer cancel()
	if err := n.rpc.PostJSON(unregisterCtx, n.cfg.TrackerURL+"/unregister", addressRequest{Address: n.addr}, nil); err != nil {
		n.logger.Warn("failed to unregister from tracker on shutdown", "err", err)
	}

	n.mu.RLock()
	snapshot := n.chain.Clone()
	n.mu.RUnlock()
	if err := n.store.Save(snapshot); err != nil {
		n.logger.Warn("failed to persist chain on shutdown", "err", err)
		return err
	}
	return nil
}

// bumpTipVersion records that the chain tip changed, and interrupts any
// in-flight mining attempt. Must be called with n.mu held for writing,
// immediately after mutating n.chain.
func (n *Node) bumpTipVersion() {
	atomic.AddUint64(&n.tipVersion, 1)
	close(n.cancelMining)
	n.cancelMining = make(chan struct{})
}

func (n *Node) currentTipVersion() uint64 {
	return atomic.LoadUint64(&n.tipVersion)
}
