// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package feemodel estimates transaction sizes and fees from input and output
// counts.
//
// The model prices every input and output with a fixed per-type byte cost
// plus a constant overhead. It does NOT apply the segwit witness discount, so
// witness spends are priced as if their witness bytes counted in full. For
// native segwit this over-estimates the BIP-141 virtual size. It is not a
// bound: nested segwit P2SH outputs take one byte more than the table prices
// them at and the segwit marker is not counted, so a nested segwit spend can
// be under-estimated by a few vbytes.
// SegwitVirtualSize reports the BIP-141 estimate for comparison.
package feemodel

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
)

// BaseSize is the fixed overhead of a transaction in bytes: version, locktime
// and the input and output counts.
const BaseSize = 10

var (
	// ErrUnknownAddressType is returned when a size is requested for an
	// address type without an entry in the cost table.
	ErrUnknownAddressType = errors.New("unknown address type")

	// ErrNegativeCount is returned for negative input or output counts.
	ErrNegativeCount = errors.New("negative input or output count")
)

// Cost is the byte cost of one input and one output of an address type.
type Cost struct {
	Input  uint64
	Output uint64
}

// costs is the per-type byte cost table.
var costs = map[address.Type]Cost{
	address.Legacy:       {Input: 148, Output: 34},
	address.NestedSegwit: {Input: 91, Output: 31},
	address.NativeSegwit: {Input: 68, Output: 31},
	address.Taproot:      {Input: 58, Output: 43},
}

// CostOf returns the byte cost table entry for the address type.
func CostOf(t address.Type) (Cost, error) {
	cost, ok := costs[t]
	if !ok {
		return Cost{}, fmt.Errorf("%w: %v", ErrUnknownAddressType, t)
	}

	return cost, nil
}

// EstimateSize returns the estimated size of a transaction with the given
// number of inputs and outputs, all of the given address type.
func EstimateSize(inputs, outputs int, t address.Type) (btcunit.VByte,
	error) {

	if inputs < 0 || outputs < 0 {
		return btcunit.VByte{}, ErrNegativeCount
	}

	cost, err := CostOf(t)
	if err != nil {
		return btcunit.VByte{}, err
	}

	size := BaseSize + uint64(inputs)*cost.Input +
		uint64(outputs)*cost.Output

	return btcunit.NewVByte(size), nil
}

// EstimateFee returns the fee for a transaction of the estimated size at the
// given rate. Fractional results are rounded up to the next satoshi.
func EstimateFee(inputs, outputs int, t address.Type,
	rate btcunit.SatPerVByte) (btcutil.Amount, error) {

	size, err := EstimateSize(inputs, outputs, t)
	if err != nil {
		return 0, err
	}

	return rate.FeeForVByteRoundUp(size), nil
}

// SegwitVirtualSize returns the BIP-141 virtual size estimate of the same
// transaction shape. It is used for diagnostics only and never feeds coin
// selection.
func SegwitVirtualSize(inputs, outputs int, t address.Type) (btcunit.VByte,
	error) {

	if inputs < 0 || outputs < 0 {
		return btcunit.VByte{}, ErrNegativeCount
	}

	var (
		numP2PKH, numP2TR, numP2WPKH, numNested int
		scriptSize                              int
	)
	switch t {
	case address.Legacy:
		numP2PKH = inputs
		scriptSize = txsizes.P2PKHPkScriptSize

	case address.NestedSegwit:
		numNested = inputs
		scriptSize = txsizes.NestedP2WPKHPkScriptSize

	case address.NativeSegwit:
		numP2WPKH = inputs
		scriptSize = txsizes.P2WPKHPkScriptSize

	case address.Taproot:
		numP2TR = inputs
		scriptSize = txsizes.P2TRPkScriptSize

	default:
		return btcunit.VByte{}, fmt.Errorf("%w: %v",
			ErrUnknownAddressType, t)
	}

	txOuts := make([]*wire.TxOut, 0, outputs)
	for range outputs {
		txOuts = append(txOuts, wire.NewTxOut(0, make([]byte, scriptSize)))
	}

	vsize := txsizes.EstimateVirtualSize(
		numP2PKH, numP2TR, numP2WPKH, numNested, txOuts, 0,
	)

	return btcunit.NewVByte(uint64(vsize)), nil
}
