package wallet

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/stretchr/testify/mock"
)

// mockBackend is a mock implementation of chain.Backend.
type mockBackend struct {
	mock.Mock
}

// A compile-time assertion to ensure that mockBackend meets the
// chain.Backend interface.
var _ chain.Backend = (*mockBackend)(nil)

// FetchUtxos implements chain.UtxoSource.
func (m *mockBackend) FetchUtxos(ctx context.Context,
	addr string) (*chain.UtxoSet, error) {

	args := m.Called(ctx, addr)

	set, _ := args.Get(0).(*chain.UtxoSet)

	return set, args.Error(1)
}

// FetchFeeEstimate implements chain.FeeEstimator.
func (m *mockBackend) FetchFeeEstimate(
	ctx context.Context) (*chain.FeeEstimate, error) {

	args := m.Called(ctx)

	estimate, _ := args.Get(0).(*chain.FeeEstimate)

	return estimate, args.Error(1)
}

// FetchPrevTxHex implements chain.PrevTxFetcher.
func (m *mockBackend) FetchPrevTxHex(ctx context.Context,
	txid chainhash.Hash) (string, error) {

	args := m.Called(ctx, txid)

	return args.String(0), args.Error(1)
}

// Broadcast implements chain.Broadcaster.
func (m *mockBackend) Broadcast(ctx context.Context,
	txHex string) (chainhash.Hash, error) {

	args := m.Called(ctx, txHex)

	txid, _ := args.Get(0).(chainhash.Hash)

	return txid, args.Error(1)
}
