// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
	"github.com/disco-quotidie/send-btc-simplified/wallet/coinselect"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// FundingSource is an address and the WIF encoded key that controls it.
type FundingSource struct {
	Address string
	WIF     string
}

// Sender runs the payment and drain workflows against a backend. It is
// immutable after construction and safe for concurrent use.
type Sender struct {
	cfg       Config
	backend   chain.Backend
	assembler *Assembler
	publisher TxPublisher
}

// NewSender creates a sender using backend for every external call.
func NewSender(backend chain.Backend, cfg Config) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var publisher TxPublisher = NewTxPublisher(backend)
	if cfg.DryRun {
		publisher = dryRunPublisher{}
	}

	return &Sender{
		cfg:       cfg,
		backend:   backend,
		assembler: NewAssembler(backend, cfg.Network),
		publisher: publisher,
	}, nil
}

// SendBtc pays amount from the funding source to the destination. Change
// goes back to the funding address.
//
// The addresses and the key are validated before any network call. The
// payment then requires the confirmed balance to exceed the amount, selects
// confirmed coins smallest first, signs and publishes. If publishing fails
// the signed transaction is still returned in Result.SignedTx.
func (s *Sender) SendBtc(ctx context.Context, from FundingSource, to string,
	amount btcutil.Amount) Result {

	txid, signed, err := s.sendBtc(ctx, from, to, amount)

	return newResult(txid, signed, err)
}

func (s *Sender) sendBtc(ctx context.Context, from FundingSource, to string,
	amount btcutil.Amount) (string, *SignedTx, error) {

	net := s.cfg.Network

	fromType := address.Classify(from.Address, net)
	if fromType == address.Invalid {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidFromAddress,
			from.Address)
	}

	toType := address.Classify(to, net)
	if toType == address.Invalid {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidToAddress, to)
	}

	if amount <= 0 {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	group, err := bindSource(from, fromType, net)
	if err != nil {
		return "", nil, err
	}

	utxos, err := s.backend.FetchUtxos(ctx, from.Address)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrFetchUtxos, err)
	}
	if utxos == nil {
		utxos = &chain.UtxoSet{}
	}

	balance := utxos.ConfirmedBalance()
	if amount >= balance {
		return "", nil, fmt.Errorf("%w: balance %v, amount %v",
			ErrInsufficientBalance, balance, amount)
	}

	rate, err := s.feeRate(ctx)
	if err != nil {
		return "", nil, err
	}

	// The fee model prices the transaction by the destination type.
	sel, err := coinselect.Select(utxos.Confirmed, amount, toType, rate)
	if err != nil {
		return "", nil, err
	}

	log.Debugf("Selected %d inputs worth %v for %v to %s (fee=%v, "+
		"change=%v)", len(sel.Inputs), sel.Total, amount, to, sel.Fee,
		sel.Change)

	group.Utxos = sel.Inputs
	req := &BuildRequest{
		Groups:      []FundingGroup{*group},
		Destination: Output{Address: to, Value: amount},
	}
	if sel.HasChange {
		req.Change = fn.Some(Output{
			Address: from.Address,
			Value:   sel.Change,
		})
	}

	return s.buildAndPublish(ctx, req)
}

// ConfirmedBalance returns the sum of the confirmed UTXOs of the address.
func (s *Sender) ConfirmedBalance(ctx context.Context,
	addr string) (btcutil.Amount, error) {

	if address.Classify(addr, s.cfg.Network) == address.Invalid {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFromAddress, addr)
	}

	utxos, err := s.backend.FetchUtxos(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFetchUtxos, err)
	}

	return utxos.ConfirmedBalance(), nil
}

// bindSource decodes the key of a funding source and checks that it controls
// the address.
func bindSource(src FundingSource, t address.Type,
	net address.Network) (*FundingGroup, error) {

	km, err := address.NewKeyMaterial(src.WIF, net)
	if err != nil {
		return nil, err
	}

	if !address.VerifyOwnership(src.Address, km, t, net) {
		return nil, fmt.Errorf("%w: %s", ErrKeyMismatch, src.Address)
	}

	return &FundingGroup{
		Address: src.Address,
		Type:    t,
		Key:     km,
	}, nil
}

// feeRate fetches the fee estimate and applies the configured tier,
// multiplier and cap.
func (s *Sender) feeRate(ctx context.Context) (btcunit.SatPerVByte, error) {
	estimate, err := s.backend.FetchFeeEstimate(ctx)
	if err != nil {
		return btcunit.ZeroSatPerVByte, fmt.Errorf("%w: %w",
			ErrFetchFeeEstimate, err)
	}
	if estimate == nil {
		return btcunit.ZeroSatPerVByte, ErrFetchFeeEstimate
	}

	rate, err := estimate.Rate(s.cfg.FeeTier).Scale(s.cfg.FeeRateMultiplier)
	if err != nil {
		return btcunit.ZeroSatPerVByte, fmt.Errorf("%w: %w",
			ErrFetchFeeEstimate, err)
	}

	// Ensure the fee rate is not "insane". This prevents paying
	// exorbitant fees on a broken estimate.
	if rate.GreaterThan(s.cfg.MaxFeeRate) {
		return btcunit.ZeroSatPerVByte, fmt.Errorf("%w: fee rate of %s "+
			"is too high, max sane fee rate is %s",
			ErrFeeRateTooLarge, rate, s.cfg.MaxFeeRate)
	}

	log.Debugf("Using %v fee rate %v (x%v)", s.cfg.FeeTier, rate,
		s.cfg.FeeRateMultiplier)

	return rate, nil
}

// buildAndPublish signs the request and publishes the result. The signed
// transaction is returned even if publishing fails.
func (s *Sender) buildAndPublish(ctx context.Context,
	req *BuildRequest) (string, *SignedTx, error) {

	signed, err := s.assembler.Build(ctx, req)
	if err != nil {
		return "", nil, err
	}

	txid, err := s.publisher.Publish(ctx, signed)
	if err != nil {
		return "", signed, err
	}

	return txid, signed, nil
}
