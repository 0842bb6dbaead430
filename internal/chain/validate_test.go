package chain

import "testing"

func mustBlock(t *testing.T, index uint64, timestamp int64, data, prevHash string, nonce uint64) Block {
	t.Helper()
	return Block{
		Index:     index,
		Timestamp: timestamp,
		Data:      data,
		PrevHash:  prevHash,
		Nonce:     nonce,
		Hash:      Hash(index, timestamp, data, prevHash, nonce),
	}
}

// mineAtDifficulty brute-forces a nonce satisfying difficulty, for test
// fixtures only (internal/consensus/powmine is the real miner).
func mineAtDifficulty(t *testing.T, index uint64, timestamp int64, data, prevHash string, difficulty int) Block {
	t.Helper()
	for nonce := uint64(0); ; nonce++ {
		h := Hash(index, timestamp, data, prevHash, nonce)
		if SatisfiesDifficulty(h, difficulty) {
			return Block{Index: index, Timestamp: timestamp, Data: data, PrevHash: prevHash, Nonce: nonce, Hash: h}
		}
	}
}

func TestIsCanonicalGenesis(t *testing.T) {
	genesis := mineAtDifficulty(t, 0, 0, GenesisData, ZeroHash, 1)
	if !IsCanonicalGenesis(&genesis, 1) {
		t.Fatalf("mined genesis not recognized as canonical")
	}

	notGenesis := genesis
	notGenesis.Data = "not the genesis payload"
	if IsCanonicalGenesis(&notGenesis, 1) {
		t.Fatalf("wrong payload accepted as canonical genesis")
	}
}

func TestValidateBlockHappyPath(t *testing.T) {
	genesis := mineAtDifficulty(t, 0, 0, GenesisData, ZeroHash, 0)
	next := mineAtDifficulty(t, 1, 1, "first contribution", genesis.Hash, 0)

	if err := ValidateBlock(&next, &genesis, 0); err != nil {
		t.Fatalf("ValidateBlock() = %v, want nil", err)
	}
}

func TestValidateBlockBadIndex(t *testing.T) {
	genesis := mineAtDifficulty(t, 0, 0, GenesisData, ZeroHash, 0)
	bad := mustBlock(t, 2, 1, "skip", genesis.Hash, 0)

	if err := ValidateBlock(&bad, &genesis, 0); err != ErrBadIndex {
		t.Fatalf("ValidateBlock() = %v, want ErrBadIndex", err)
	}
}

func TestValidateBlockBadLinkage(t *testing.T) {
	genesis := mineAtDifficulty(t, 0, 0, GenesisData, ZeroHash, 0)
	bad := mustBlock(t, 1, 1, "orphaned", "not-the-genesis-hash", 0)

	if err := ValidateBlock(&bad, &genesis, 0); err != ErrBadLinkage {
		t.Fatalf("ValidateBlock() = %v, want ErrBadLinkage", err)
	}
}

func TestValidateBlockBadHash(t *testing.T) {
	genesis := mineAtDifficulty(t, 0, 0, GenesisData, ZeroHash, 0)
	tampered := mustBlock(t, 1, 1, "original", genesis.Hash, 0)
	tampered.Data = "tampered after hashing"

	if err := ValidateBlock(&tampered, &genesis, 0); err != ErrBadHash {
		t.Fatalf("ValidateBlock() = %v, want ErrBadHash", err)
	}
}

func TestValidateBlockBadPoW(t *testing.T) {
	genesis := mineAtDifficulty(t, 0, 0, GenesisData, ZeroHash, 0)
	weak := mustBlock(t, 1, 1, "no work done", genesis.Hash, 0)

	if err := ValidateBlock(&weak, &genesis, 64); err != ErrBadPoW {
		t.Fatalf("ValidateBlock() = %v, want ErrBadPoW", err)
	}
}

func TestValidateChain(t *testing.T) {
	genesis := mineAtDifficulty(t, 0, 0, GenesisData, ZeroHash, 1)
	b1 := mineAtDifficulty(t, 1, 1, "page one", genesis.Hash, 1)
	b2 := mineAtDifficulty(t, 2, 2, "page two", b1.Hash, 1)

	if err := ValidateChain([]Block{genesis, b1, b2}, 1); err != nil {
		t.Fatalf("ValidateChain() = %v, want nil", err)
	}
}

func TestValidateChainEmpty(t *testing.T) {
	if err := ValidateChain(nil, 0); err != ErrEmptyChain {
		t.Fatalf("ValidateChain(nil) = %v, want ErrEmptyChain", err)
	}
}

func TestValidateChainBadGenesis(t *testing.T) {
	notGenesis := mustBlock(t, 0, 0, "wrong sentinel", ZeroHash, 0)
	if err := ValidateChain([]Block{notGenesis}, 0); err != ErrBadGenesis {
		t.Fatalf("ValidateChain() = %v, want ErrBadGenesis", err)
	}
}
