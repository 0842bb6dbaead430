package powmine

import (
	"testing"

	"github.com/fablechain/fablechain/internal/chain"
)

func TestMineFindsValidBlock(t *testing.T) {
	b, err := Mine(1, "a new page", chain.ZeroHash, 8, nil)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if !chain.SatisfiesDifficulty(b.Hash, 8) {
		t.Fatalf("mined hash %q does not satisfy difficulty 8", b.Hash)
	}
	if got := chain.Hash(b.Index, b.Timestamp, b.Data, b.PrevHash, b.Nonce); got != b.Hash {
		t.Fatalf("mined block hash does not recompute: got %s, want %s", got, b.Hash)
	}
}

func TestMineAbortsOnStop(t *testing.T) {
	stop := make(chan struct{})
	close(stop)

	// An already-closed stop channel should abort at the first poll,
	// long before an extremely high difficulty could ever be satisfied.
	_, err := Mine(1, "doomed search", chain.ZeroHash, 64, stop)
	if err != ErrAborted {
		t.Fatalf("Mine() error = %v, want ErrAborted", err)
	}
}

func TestMineGenesis(t *testing.T) {
	g := MineGenesis(4)
	if g.Index != 0 || g.Data != chain.GenesisData || g.PrevHash != chain.ZeroHash {
		t.Fatalf("MineGenesis() produced a non-canonical block: %+v", g)
	}
	if !chain.SatisfiesDifficulty(g.Hash, 4) {
		t.Fatalf("genesis hash %q does not satisfy difficulty 4", g.Hash)
	}
}
