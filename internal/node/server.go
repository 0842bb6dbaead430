package node

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/fablechain/fablechain/internal/chain"
)

// httpServer builds the node's HTTP surface, exactly the endpoints
// enumerated in spec.md §4.2, plus the supplemental /ws/blocks feed.
func (n *Node) httpServer() *http.Server {
	router := httprouter.New()
	router.GET("/get_chain", n.handleGetChain)
	router.POST("/add_transaction", n.handleAddTransaction)
	router.POST("/mine", n.handleMine)
	router.POST("/receive_block", n.handleReceiveBlock)
	router.POST("/auto_mine", n.handleAutoMine)
	router.GET("/status", n.handleStatus)
	router.GET("/peers", n.handlePeers)
	router.GET("/ws/blocks", n.handleWSBlocks)

	return &http.Server{
		Addr:    n.addr,
		Handler: cors.Default().Handler(router),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// handleGetChain implements GET /get_chain: a read-only snapshot under the
// read lock, per spec.md §4.2.
func (n *Node) handleGetChain(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n.mu.RLock()
	snapshot := n.chain.Clone()
	n.mu.RUnlock()

	writeJSON(w, http.StatusOK, chainResponse{Length: snapshot.Len(), Chain: snapshot.Blocks})
}

// handleAddTransaction implements POST /add_transaction.
func (n *Node) handleAddTransaction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req dataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	n.mu.Lock()
	n.pool.Push(req.Data)
	size := n.pool.Len()
	n.mu.Unlock()

	writeJSON(w, http.StatusOK, addTransactionResponse{Accepted: true, PoolSize: size})
}

// handleMine implements POST /mine: a blocking call that mines one block
// carrying the given payload.
func (n *Node) handleMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req dataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	block, err := n.mineWithData(r.Context(), req.Data)
	if err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, mineResponse{Block: block})
}

// handleReceiveBlock implements POST /receive_block, applying the tip
// extension / stale / orphan / linkage-mismatch rules of spec.md §4.3.
func (n *Node) handleReceiveBlock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req receiveBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	b := req.Block

	if n.seen.Contains(b.Hash) {
		// Exact duplicate of an already-accepted block: short-circuit
		// without touching the write lock (SPEC_FULL.md §4.3).
		writeJSON(w, http.StatusConflict, receiveBlockResponse{Accepted: false, Reason: chain.ErrStale.Error()})
		return
	}

	n.mu.Lock()
	tip := n.chain.Tip()
	if tip == nil {
		n.mu.Unlock()
		writeJSON(w, http.StatusConflict, receiveBlockResponse{Accepted: false, Reason: "no local tip"})
		return
	}

	switch {
	case b.Index <= tip.Index:
		n.mu.Unlock()
		writeJSON(w, http.StatusConflict, receiveBlockResponse{Accepted: false, Reason: chain.ErrStale.Error()})
		return

	case b.Index > tip.Index+1:
		n.mu.Unlock()
		n.requestSync()
		writeJSON(w, http.StatusConflict, receiveBlockResponse{Accepted: false, Reason: chain.ErrOrphan.Error()})
		return

	case b.PrevHash != tip.Hash:
		n.mu.Unlock()
		n.requestSync()
		writeJSON(w, http.StatusConflict, receiveBlockResponse{Accepted: false, Reason: chain.ErrLinkageMismatch.Error()})
		return
	}

	// Tip extension (happy path): b.Index == tip.Index+1 and b.PrevHash == tip.Hash.
	if err := chain.ValidateBlock(&b, tip, n.cfg.Difficulty); err != nil {
		n.mu.Unlock()
		writeJSON(w, http.StatusConflict, receiveBlockResponse{Accepted: false, Reason: err.Error()})
		return
	}

	n.chain.Append(b)
	n.pool.RemoveFirstMatch(b.Data)
	n.seen.Add(b.Hash, struct{}{})
	n.bumpTipVersion()
	snapshot := n.chain.Clone()
	n.mu.Unlock()

	if err := n.store.Save(snapshot); err != nil {
		n.logger.Warn("failed to persist chain after receiving block", "err", err)
	}
	n.logger.Info("accepted block from peer", "index", b.Index, "hash", b.Hash)
	n.hub.Broadcast(b)
	// Do not re-broadcast: the sender handles fan-out (spec.md §4.3).
	writeJSON(w, http.StatusOK, receiveBlockResponse{Accepted: true})
}

// handleAutoMine implements POST /auto_mine.
func (n *Node) handleAutoMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req autoMineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}

	if req.Enable {
		atomic.StoreInt32(&n.autoMine, 1)
	} else {
		atomic.StoreInt32(&n.autoMine, 0)
	}
	if req.Interval > 0 {
		atomic.StoreInt64(&n.mineIntervalNano, int64(time.Duration(req.Interval)*time.Second))
	}

	writeJSON(w, http.StatusOK, autoMineResponse{
		AutoMine: atomic.LoadInt32(&n.autoMine) == 1,
		Interval: int(time.Duration(atomic.LoadInt64(&n.mineIntervalNano)) / time.Second),
	})
}

// handleStatus implements GET /status, a diagnostic read under the read
// lock.
func (n *Node) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n.mu.RLock()
	length := n.chain.Len()
	tip := n.chain.Tip()
	poolSize := n.pool.Len()
	n.mu.RUnlock()

	tipHash := ""
	if tip != nil {
		tipHash = tip.Hash
	}

	broadcast := n.lastBroadcastSnapshot()

	writeJSON(w, http.StatusOK, statusResponse{
		Length:        length,
		TipHash:       tipHash,
		MempoolSize:   poolSize,
		AutoMine:      atomic.LoadInt32(&n.autoMine) == 1,
		Peers:         n.peers.Len(),
		NodeID:        n.nodeID.String(),
		PeersNotified: broadcast.PeersNotified,
		PeersFailed:   broadcast.PeersFailed,
	})
}

// handlePeers implements GET /peers: the node's cached peer list.
func (n *Node) handlePeers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, trackerPeersResponse{Peers: n.peers.Snapshot()})
}
