package tracker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/fablechain/fablechain/log"
)

// Server hosts the tracker's HTTP directory API.
type Server struct {
	dir    *Directory
	logger log.Logger
	http.Handler
}

// NewServer builds a tracker Server backed by dir, with CORS enabled so
// browser-based collaborator dashboards can poll /peers directly.
func NewServer(dir *Directory) *Server {
	s := &Server{dir: dir, logger: log.New("component", "tracker")}

	router := httprouter.New()
	router.POST("/register", s.handleRegister)
	router.POST("/heartbeat", s.handleHeartbeat)
	router.GET("/peers", s.handlePeers)
	router.POST("/unregister", s.handleUnregister)
	router.GET("/stats", s.handleStats)

	s.Handler = cors.Default().Handler(router)
	return s
}

type addressRequest struct {
	Address string `json:"address"`
}

type peersResponse struct {
	Peers []string `json:"peers"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeAddress(r *http.Request) (string, error) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", err
	}
	return req.Address, nil
}

// handleRegister implements register(address): insert/refresh the entry
// and return the current peer list excluding the caller, per spec.md §4.1.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	address, err := decodeAddress(r)
	if err != nil || address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or malformed address"})
		return
	}
	now := time.Now()
	s.dir.Register(address, now)
	s.logger.Info("node registered", "address", address)
	writeJSON(w, http.StatusOK, peersResponse{Peers: s.dir.Peers(now, address)})
}

// handleHeartbeat is semantically identical to register (spec.md §4.1): an
// unknown address is simply registered.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	address, err := decodeAddress(r)
	if err != nil || address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or malformed address"})
		return
	}
	now := time.Now()
	s.dir.Heartbeat(address, now)
	writeJSON(w, http.StatusOK, peersResponse{Peers: s.dir.Peers(now, address)})
}

// handlePeers implements peers(): the full live set, TTL-purged.
func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, peersResponse{Peers: s.dir.Peers(time.Now(), "")})
}

// handleUnregister implements unregister(address): best-effort removal.
func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	address, err := decodeAddress(r)
	if err != nil || address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or malformed address"})
		return
	}
	s.dir.Unregister(address)
	s.logger.Info("node unregistered", "address", address)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleStats is the supplemental diagnostic endpoint added in
// SPEC_FULL.md §4.1.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	now := time.Now()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"live_peers":             s.dir.Count(now),
		"liveness_ttl_seconds":   int(s.dir.livenessTTL.Seconds()),
	})
}
