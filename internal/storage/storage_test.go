package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/cp"

	"github.com/fablechain/fablechain/internal/chain"
)

func testChain(t *testing.T) chain.Chain {
	t.Helper()
	genesis := chain.Block{
		Index:    0,
		Data:     chain.GenesisData,
		PrevHash: chain.ZeroHash,
		Hash:     chain.Hash(0, 0, chain.GenesisData, chain.ZeroHash, 0),
	}
	return chain.New([]chain.Block{genesis})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "127.0.0.1:5501")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c := testChain(t)
	if err := s.Save(c); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, ok := s.Load()
	if !ok {
		t.Fatalf("Load() ok = false after a successful Save()")
	}
	if loaded.Len() != c.Len() || loaded.Tip().Hash != c.Tip().Hash {
		t.Fatalf("Load() = %+v, want %+v", loaded, c)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "127.0.0.1:5502")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := s.Load(); ok {
		t.Fatalf("Load() ok = true for a nonexistent file")
	}
}

func TestLoadCorruptedFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "127.0.0.1:5503")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := os.WriteFile(s.filename(), []byte("not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt fixture: %v", err)
	}

	if _, ok := s.Load(); ok {
		t.Fatalf("Load() ok = true for a corrupted file")
	}
}

func TestLoadEmptyBlocksFallsBack(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "127.0.0.1:5504")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := os.WriteFile(s.filename(), []byte(`{"address":"x","blocks":[]}`), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, ok := s.Load(); ok {
		t.Fatalf("Load() ok = true for a file with no blocks")
	}
}

func TestSaveLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "127.0.0.1:5505")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Save(testChain(t)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("leftover temp file after Save(): %s", e.Name())
		}
	}
}

func TestLoadGoldenFixture(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "127.0.0.1:5507")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := cp.CopyFile(s.filename(), "testdata/chain_fixture.json"); err != nil {
		t.Fatalf("staging golden fixture: %v", err)
	}

	loaded, ok := s.Load()
	if !ok {
		t.Fatalf("Load() ok = false for a well-formed golden fixture")
	}
	if loaded.Len() != 1 || loaded.Tip().Data != chain.GenesisData {
		t.Fatalf("Load() = %+v, unexpected contents", loaded)
	}
}

func TestFilenameEscapesColon(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "127.0.0.1:5506")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := s.filename(); filepath.Base(got) != "chain_127.0.0.1_5506.json" {
		t.Fatalf("filename() = %s, want chain_127.0.0.1_5506.json", got)
	}
}
