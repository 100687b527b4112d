// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package coinselect picks the UTXOs that fund a payment.
//
// Select accumulates coins smallest first until the running total covers the
// target plus the estimated fee of a two output transaction (destination and
// change). Spending the smallest coins first consolidates dust over time at
// the price of more inputs, and so more fee, per payment. SelectAll drains
// every coin into a single output.
package coinselect

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
	"github.com/disco-quotidie/send-btc-simplified/wallet/feemodel"
)

const (
	// DustLimit is the value an output must exceed to be created. Change
	// at or below it is left to the miner.
	DustLimit btcutil.Amount = 546

	// paymentOutputs is the output count assumed while selecting for a
	// payment: the destination and a potential change output.
	paymentOutputs = 2

	// drainOutputs is the output count of a drain.
	drainOutputs = 1
)

var (
	// ErrInsufficientFunds is returned when all coins together do not
	// cover the target plus fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDustOutput is returned when a drain leaves an output at or below
	// the dust limit.
	ErrDustOutput = errors.New("output below dust limit")

	// ErrNoInputs is returned when there is nothing to select from.
	ErrNoInputs = errors.New("no inputs to select")

	// ErrInvalidTarget is returned for a target that is not positive.
	ErrInvalidTarget = errors.New("target must be positive")
)

// Selection is the outcome of a coin selection.
type Selection struct {
	// Inputs are the chosen coins in spending order.
	Inputs []chain.Utxo

	// Total is the sum of the chosen coins.
	Total btcutil.Amount

	// Target is the amount paid to the destination. For a drain it is the
	// value of the single output.
	Target btcutil.Amount

	// EstimatedFee is the fee given by the fee model for the transaction
	// shape.
	EstimatedFee btcutil.Amount

	// Fee is the fee actually paid: EstimatedFee plus any change that was
	// too small to be returned.
	Fee btcutil.Amount

	// Change is the value of the change output, zero without one.
	Change btcutil.Amount

	// HasChange is true if a change output must be created.
	HasChange bool
}

// Strategy orders the candidate coins before they are accumulated.
type Strategy interface {
	// ArrangeCoins returns the coins in the order they should be spent.
	// It must not modify the passed slice.
	ArrangeCoins(utxos []chain.Utxo) []chain.Utxo
}

// SmallestFirst spends the lowest valued coins first.
var SmallestFirst Strategy = &SmallestFirstSelector{}

// SmallestFirstSelector is the Strategy that sorts coins ascending by value.
type SmallestFirstSelector struct{}

// ArrangeCoins returns a copy of the coins sorted ascending by value. Coins of
// equal value keep their relative order.
func (*SmallestFirstSelector) ArrangeCoins(utxos []chain.Utxo) []chain.Utxo {
	arranged := slices.Clone(utxos)
	sort.Stable(byValue(arranged))

	return arranged
}

// byValue sorts UTXOs ascending by value.
type byValue []chain.Utxo

func (s byValue) Len() int           { return len(s) }
func (s byValue) Less(i, j int) bool { return s[i].Value < s[j].Value }
func (s byValue) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Select picks coins smallest first until they cover target plus the fee of a
// two output transaction of type t at the given rate.
func Select(utxos []chain.Utxo, target btcutil.Amount, t address.Type,
	rate btcunit.SatPerVByte) (*Selection, error) {

	return SelectWith(SmallestFirst, utxos, target, t, rate)
}

// SelectWith is Select with a custom ordering strategy.
func SelectWith(strategy Strategy, utxos []chain.Utxo, target btcutil.Amount,
	t address.Type, rate btcunit.SatPerVByte) (*Selection, error) {

	if target <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, target)
	}

	if len(utxos) == 0 {
		return nil, ErrNoInputs
	}

	arranged := strategy.ArrangeCoins(utxos)

	var (
		chosen = make([]chain.Utxo, 0, len(arranged))
		total  btcutil.Amount
	)
	for _, utxo := range arranged {
		chosen = append(chosen, utxo)
		total += utxo.Value

		fee, err := feemodel.EstimateFee(
			len(chosen), paymentOutputs, t, rate,
		)
		if err != nil {
			return nil, err
		}

		if total < target+fee {
			continue
		}

		return newSelection(chosen, total, target, fee), nil
	}

	fee, err := feemodel.EstimateFee(len(chosen), paymentOutputs, t, rate)
	if err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("%w: have %v, need %v", ErrInsufficientFunds,
		total, target+fee)
}

// newSelection applies the change policy to a covering set of coins.
func newSelection(chosen []chain.Utxo, total, target,
	fee btcutil.Amount) *Selection {

	s := &Selection{
		Inputs:       chosen,
		Total:        total,
		Target:       target,
		EstimatedFee: fee,
		Fee:          fee,
	}

	change := total - target - fee
	if change > DustLimit {
		s.Change = change
		s.HasChange = true
	} else {
		s.Fee += change
	}

	return s
}

// SelectAll spends every coin into a single output whose value is the total
// minus the fee of a one output transaction. The coins keep the given order.
func SelectAll(utxos []chain.Utxo, t address.Type,
	rate btcunit.SatPerVByte) (*Selection, error) {

	if len(utxos) == 0 {
		return nil, ErrNoInputs
	}

	var total btcutil.Amount
	for _, utxo := range utxos {
		total += utxo.Value
	}

	fee, err := feemodel.EstimateFee(len(utxos), drainOutputs, t, rate)
	if err != nil {
		return nil, err
	}

	out := total - fee
	if out <= DustLimit {
		return nil, fmt.Errorf("%w: %v left of %v after %v fee",
			ErrDustOutput, out, total, fee)
	}

	return &Selection{
		Inputs:       slices.Clone(utxos),
		Total:        total,
		Target:       out,
		EstimatedFee: fee,
		Fee:          fee,
	}, nil
}
