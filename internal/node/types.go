package node

import "github.com/fablechain/fablechain/internal/chain"

// addressRequest is the {"address": "..."} body sent to the tracker's
// register and unregister endpoints.
type addressRequest struct {
	Address string `json:"address"`
}

// trackerPeersResponse mirrors the tracker's {"peers": [...]} response.
type trackerPeersResponse struct {
	Peers []string `json:"peers"`
}

// chainResponse is the wire format of GET /get_chain, per spec.md §6.
type chainResponse struct {
	Length int           `json:"length"`
	Chain  []chain.Block `json:"chain"`
}

// dataRequest is the {"data": "..."} body accepted by /add_transaction and
// /mine.
type dataRequest struct {
	Data string `json:"data"`
}

// addTransactionResponse is the response body of /add_transaction.
type addTransactionResponse struct {
	Accepted bool `json:"accepted"`
	PoolSize int  `json:"pool_size"`
}

// mineResponse is the response body of /mine on success.
type mineResponse struct {
	Block chain.Block `json:"block"`
}

// receiveBlockRequest is the body of POST /receive_block.
type receiveBlockRequest struct {
	Block chain.Block `json:"block"`
}

// receiveBlockResponse is the response body of /receive_block.
type receiveBlockResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// autoMineRequest is the body of POST /auto_mine.
type autoMineRequest struct {
	Enable   bool `json:"enable"`
	Interval int  `json:"interval,omitempty"`
}

// autoMineResponse is the response body of /auto_mine.
type autoMineResponse struct {
	AutoMine bool `json:"auto_mine"`
	Interval int  `json:"interval"`
}

// BroadcastResult is the per-peer outcome of the most recent block fan-out.
// It is diagnostic only: never persisted, never consulted by consensus or
// validation, and surfaced solely through GET /status.
type BroadcastResult struct {
	PeersNotified int `json:"peers_notified"`
	PeersFailed   int `json:"peers_failed"`
}

// statusResponse is the response body of GET /status.
type statusResponse struct {
	Length        int    `json:"length"`
	TipHash       string `json:"tip_hash"`
	MempoolSize   int    `json:"mempool_size"`
	AutoMine      bool   `json:"auto_mine"`
	Peers         int    `json:"peers"`
	NodeID        string `json:"node_id"`
	PeersNotified int    `json:"peers_notified"`
	PeersFailed   int    `json:"peers_failed"`
}

// errorResponse is the generic {"error": "..."} body for malformed input.
type errorResponse struct {
	Error string `json:"error"`
}
