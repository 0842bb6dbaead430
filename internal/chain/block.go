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

// Package chain contains the block and chain data model shared by every
// fablechain node: construction, hashing, proof-of-work validation, and
// whole-chain validation. It is payload-agnostic — the Data field is an
// opaque string owned by whatever collaborator submitted it.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// hexLen is the length of a lowercase-hex SHA-256 digest.
const hexLen = sha256.Size * 2

// ZeroHash is the fixed all-zero prev_hash carried by the genesis block.
var ZeroHash = strings.Repeat("0", hexLen)

// GenesisData is the fixed sentinel payload every node's genesis block
// carries. Byte-identical genesis across all nodes is mandatory — see
// spec.md §9.
const GenesisData = "fablechain genesis — the first page is always blank"

// Block is the unit of replication. Field names and JSON keys match the
// wire format in spec.md §6 exactly.
type Block struct {
	Index     uint64 `json:"index"`
	Timestamp int64  `json:"timestamp"`
	Data      string `json:"data"`
	PrevHash  string `json:"prev_hash"`
	Nonce     uint64 `json:"nonce"`
	Hash      string `json:"hash"`
}

// preimage builds the canonical byte sequence hashed to produce a block's
// hash. The fields are joined with '|'. Injectivity does not rely on '|'
// being absent from Data: PrevHash is always exactly hexLen hex characters
// (never containing '|'), so it anchors an unambiguous split point from the
// right regardless of what separators Data itself contains. See
// SPEC_FULL.md §4.4 for the full argument; every node in a deployment must
// use this exact construction or chains will permanently fork.
func preimage(index uint64, timestamp int64, data, prevHash string, nonce uint64) []byte {
	b := make([]byte, 0, 64+len(data)+len(prevHash))
	b = append(b, strconv.FormatUint(index, 10)...)
	b = append(b, '|')
	b = append(b, strconv.FormatInt(timestamp, 10)...)
	b = append(b, '|')
	b = append(b, data...)
	b = append(b, '|')
	b = append(b, prevHash...)
	b = append(b, '|')
	b = append(b, strconv.FormatUint(nonce, 10)...)
	return b
}

// computeHash recomputes the SHA-256 hex digest over b's canonical fields,
// ignoring b.Hash itself.
func computeHash(b *Block) string {
	sum := sha256.Sum256(preimage(b.Index, b.Timestamp, b.Data, b.PrevHash, b.Nonce))
	return hex.EncodeToString(sum[:])
}

// hasLeadingZeros reports whether hexHash begins with n hexadecimal '0'
// characters.
func hasLeadingZeros(hexHash string, n int) bool {
	if len(hexHash) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if hexHash[i] != '0' {
			return false
		}
	}
	return true
}

// Hash computes the canonical SHA-256 hex digest for the given block
// fields, exported for the powmine package's nonce search loop.
func Hash(index uint64, timestamp int64, data, prevHash string, nonce uint64) string {
	sum := sha256.Sum256(preimage(index, timestamp, data, prevHash, nonce))
	return hex.EncodeToString(sum[:])
}

// SatisfiesDifficulty reports whether hexHash begins with difficulty
// hexadecimal zero characters.
func SatisfiesDifficulty(hexHash string, difficulty int) bool {
	return hasLeadingZeros(hexHash, difficulty)
}
