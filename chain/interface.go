// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain defines the contracts of the external services a send needs,
// namely UTXO lookup, fee estimation, previous transaction lookup and
// broadcast, and provides an Esplora REST implementation of them.
package chain

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Utxo is an unspent transaction output as reported by a UtxoSource.
type Utxo struct {
	// TxID is the hash of the transaction that created the output.
	TxID chainhash.Hash

	// Vout is the index of the output in that transaction.
	Vout uint32

	// Value is the amount locked in the output.
	Value btcutil.Amount

	// Confirmed is true once the creating transaction is in a block.
	Confirmed bool
}

// OutPoint returns the outpoint that spends the UTXO.
func (u Utxo) OutPoint() wire.OutPoint {
	return wire.OutPoint{Hash: u.TxID, Index: u.Vout}
}

// UtxoSet is the set of UTXOs of one address, split by confirmation status.
type UtxoSet struct {
	Confirmed   []Utxo
	Unconfirmed []Utxo
}

// ConfirmedBalance returns the sum of the confirmed UTXOs. A nil set has a
// zero balance.
func (s *UtxoSet) ConfirmedBalance() btcutil.Amount {
	var total btcutil.Amount
	if s == nil {
		return total
	}

	for _, utxo := range s.Confirmed {
		total += utxo.Value
	}

	return total
}

// UtxoSource lists the UTXOs of an address.
type UtxoSource interface {
	// FetchUtxos returns the UTXOs of the address. A transport failure is
	// returned as an error and never as an empty set, so callers can tell
	// an unreachable backend from an address without funds.
	FetchUtxos(ctx context.Context, addr string) (*UtxoSet, error)
}

// FeeEstimator reports the current fee market.
type FeeEstimator interface {
	// FetchFeeEstimate returns the recommended fee rates per tier.
	FetchFeeEstimate(ctx context.Context) (*FeeEstimate, error)
}

// PrevTxFetcher looks up full transactions by id. Legacy inputs need the
// complete previous transaction to be signed.
type PrevTxFetcher interface {
	// FetchPrevTxHex returns the hex serialized transaction. It returns
	// ErrTxNotFound if the transaction is unknown.
	FetchPrevTxHex(ctx context.Context, txid chainhash.Hash) (string,
		error)
}

// Broadcaster relays signed transactions to the network.
type Broadcaster interface {
	// Broadcast publishes the hex serialized transaction and returns the
	// id reported by the backend. A refusal is returned as an error
	// wrapping ErrBroadcastRejected.
	Broadcast(ctx context.Context, txHex string) (chainhash.Hash, error)
}

// Backend bundles every service a send needs.
type Backend interface {
	UtxoSource
	FeeEstimator
	PrevTxFetcher
	Broadcaster
}
