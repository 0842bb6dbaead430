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

// Package powmine implements the proof-of-work nonce search described in
// spec.md §4.4. It is the single-threaded analogue of the teacher's
// consensus/probeash sealer: one search goroutine per mining attempt,
// cooperatively cancelable by polling an abort channel every checkInterval
// nonces.
package powmine

import (
	"errors"
	"time"

	"github.com/fablechain/fablechain/internal/chain"
	"github.com/fablechain/fablechain/log"
)

// checkInterval is how often, in nonces searched, the search loop polls its
// abort channel. spec.md §4.4 recommends at least every 1000 nonces.
const checkInterval = 1000

// ErrAborted is returned when Mine's stop channel fires before a valid
// nonce was found.
var ErrAborted = errors.New("powmine: mining attempt aborted")

// DefaultDifficulty is the number of leading hex-zero characters a mined
// block's hash must have, per spec.md §4.4.
const DefaultDifficulty = 4

// Mine searches nonce = 0, 1, 2, ... for the first value producing a hash
// that satisfies difficulty, building a block with the given index, data,
// and prevHash. timestamp is captured once at the start of the search and
// held fixed for the duration, per spec.md §4.4's "keeps the search space
// one-dimensional" design choice.
//
// Mine blocks the calling goroutine. It returns ErrAborted if stop is
// closed (or receives a value) before a solution is found.
func Mine(index uint64, data, prevHash string, difficulty int, stop <-chan struct{}) (chain.Block, error) {
	timestamp := time.Now().Unix()
	logger := log.New("component", "powmine")
	logger.Trace("started nonce search", "index", index, "difficulty", difficulty)

	var nonce uint64
	for {
		for i := 0; i < checkInterval; i++ {
			hash := chain.Hash(index, timestamp, data, prevHash, nonce)
			if chain.SatisfiesDifficulty(hash, difficulty) {
				logger.Debug("found valid nonce", "index", index, "nonce", nonce)
				return chain.Block{
					Index:     index,
					Timestamp: timestamp,
					Data:      data,
					PrevHash:  prevHash,
					Nonce:     nonce,
					Hash:      hash,
				}, nil
			}
			nonce++
		}
		select {
		case <-stop:
			logger.Trace("nonce search aborted", "index", index, "attempts", nonce)
			return chain.Block{}, ErrAborted
		default:
		}
	}
}

// MineGenesis mines the canonical genesis block: index 0, the fixed
// GenesisData sentinel, and the all-zero PrevHash. It cannot be aborted —
// genesis mining happens once at bootstrap before any worker starts.
func MineGenesis(difficulty int) chain.Block {
	b, err := Mine(0, chain.GenesisData, chain.ZeroHash, difficulty, nil)
	if err != nil {
		// Mine only returns ErrAborted when stop fires; stop is nil here and
		// a nil channel never fires, so this branch is unreachable.
		panic(err)
	}
	return b
}
