// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"

	"github.com/disco-quotidie/send-btc-simplified/chain"
)

// TxPublisher publishes signed transactions.
type TxPublisher interface {
	// Publish broadcasts the signed transaction and returns the id the
	// network reported.
	Publish(ctx context.Context, signed *SignedTx) (string, error)
}

// broadcastPublisher publishes through a chain.Broadcaster.
type broadcastPublisher struct {
	broadcaster chain.Broadcaster
}

// A compile time check to ensure that broadcastPublisher implements the
// interface.
var _ TxPublisher = (*broadcastPublisher)(nil)

// NewTxPublisher returns a TxPublisher backed by the broadcaster.
func NewTxPublisher(broadcaster chain.Broadcaster) TxPublisher {
	return &broadcastPublisher{broadcaster: broadcaster}
}

// Publish broadcasts the signed transaction. A failure wraps
// ErrBroadcastFailed; the transaction stays signed and may be rebroadcast by
// the caller.
func (p *broadcastPublisher) Publish(ctx context.Context,
	signed *SignedTx) (string, error) {

	txid, err := p.broadcaster.Broadcast(ctx, signed.Hex)
	if err != nil {
		log.Errorf("%v: broadcast failed: %v", signed.TxID, err)
		log.Debugf("Unpublished tx %v hex=%s", signed.TxID, signed.Hex)

		return "", fmt.Errorf("%w: %w", ErrBroadcastFailed, err)
	}

	if txid != signed.TxID {
		log.Warnf("Backend reported txid %v for tx %v", txid,
			signed.TxID)
	}

	log.Infof("Published tx %v", txid)

	return txid.String(), nil
}

// dryRunPublisher reports the local txid without broadcasting.
type dryRunPublisher struct{}

// Publish returns the id of the signed transaction.
func (dryRunPublisher) Publish(_ context.Context,
	signed *SignedTx) (string, error) {

	log.Infof("Dry run, not publishing tx %v", signed.TxID)

	return signed.TxID.String(), nil
}
