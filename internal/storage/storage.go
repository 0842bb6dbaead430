// Package storage is the filesystem persistence adapter described in
// spec.md §4.5: one JSON document per node under blockchain_states/,
// written atomically (temp file + rename) after every chain mutation.
//
// The teacher's own persistence layer (probedb) backs onto LevelDB via
// github.com/syndtr/goleveldb; spec.md §4.5 is explicit that a fablechain
// node's persisted form is a single JSON document, not a key-value store,
// so this package has a filesystem backend only. Store is a concrete type,
// not an interface, and the node uses *Store directly — see DESIGN.md for
// the full disposition of the goleveldb dependency.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fablechain/fablechain/internal/chain"
	"github.com/fablechain/fablechain/log"
)

// DefaultDir is the directory persisted chain files live under, relative to
// the node's working directory unless overridden by --data-dir.
const DefaultDir = "blockchain_states"

// document is the on-disk representation of a node's chain.
type document struct {
	Address string        `json:"address"`
	Blocks  []chain.Block `json:"blocks"`
}

// Store persists and restores a single node's chain as a JSON file keyed by
// the node's host:port address.
type Store struct {
	dir     string
	address string
	logger  log.Logger
}

// New returns a Store rooted at dir, for the node listening on address
// (e.g. "127.0.0.1:5501"). dir is created if it does not already exist.
func New(dir, address string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create directory %q: %w", dir, err)
	}
	return &Store{dir: dir, address: address, logger: log.New("component", "storage", "address", address)}, nil
}

// filename returns the path of the node's persisted chain file. The
// host:port separator is escaped since ':' is not portable in filenames.
func (s *Store) filename() string {
	safe := strings.ReplaceAll(s.address, ":", "_")
	return filepath.Join(s.dir, fmt.Sprintf("chain_%s.json", safe))
}

// Load reads and parses the persisted chain. A missing or corrupted file is
// not a fatal condition — it is reported via the bool return so the caller
// can fall back to a fresh genesis, per spec.md §4.5 and §7.
func (s *Store) Load() (chain.Chain, bool) {
	path := s.filename()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read persisted chain, starting from genesis", "path", path, "err", err)
		}
		return chain.Chain{}, false
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("persisted chain file is corrupted, starting from genesis", "path", path, "err", err)
		return chain.Chain{}, false
	}
	if len(doc.Blocks) == 0 {
		s.logger.Warn("persisted chain file has no blocks, starting from genesis", "path", path)
		return chain.Chain{}, false
	}
	return chain.New(doc.Blocks), true
}

// Save atomically persists c: it writes to a temp file in the same
// directory and renames it over the target, so a crash mid-write never
// leaves a partially-written chain file behind.
func (s *Store) Save(c chain.Chain) error {
	doc := document{Address: s.address, Blocks: c.Blocks}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("storage: marshal chain: %w", err)
	}

	target := s.filename()
	tmp, err := os.CreateTemp(s.dir, "chain_*.tmp")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("storage: rename temp file into place: %w", err)
	}
	return nil
}
