// Package config loads the ambient defaults-file layer described in
// SPEC_FULL.md §2: an optional TOML file read with github.com/naoina/toml,
// with command-line flags always taking precedence, mirroring the
// teacher's own cmd/gprobe config-file loader.
package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// NodeFile is the shape of an optional node TOML defaults file, e.g.:
//
//	Host = "127.0.0.1"
//	Port = 5501
//	TrackerURL = "http://127.0.0.1:5500"
//	AutoMine = false
//	MineIntervalSeconds = 2
//	Difficulty = 4
//	SyncIntervalSeconds = 10
//	DataDir = "blockchain_states"
type NodeFile struct {
	Host                string
	Port                int
	TrackerURL          string
	AutoMine            bool
	MineIntervalSeconds int
	Difficulty          int
	SyncIntervalSeconds int
	DataDir             string
}

// TrackerFile is the shape of an optional tracker TOML defaults file.
type TrackerFile struct {
	Host               string
	Port               int
	LivenessTTLSeconds int
}

// tomlSettings rejects unknown fields in a defaults file, matching the
// teacher's own config-file strictness.
var tomlSettings = toml.Config{
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field %q is not defined in %s", field, rt.String())
	},
}

// LoadNode parses a node defaults file at path into dst.
func LoadNode(path string, dst *NodeFile) error {
	return load(path, dst)
}

// LoadTracker parses a tracker defaults file at path into dst.
func LoadTracker(path string, dst *TrackerFile) error {
	return load(path, dst)
}

func load(path string, dst interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := tomlSettings.NewDecoder(bufio.NewReader(f))
	if err := dec.Decode(dst); err != nil {
		if _, ok := err.(*toml.LineError); ok {
			return fmt.Errorf("%s: %w", path, err)
		}
		return err
	}
	return nil
}
