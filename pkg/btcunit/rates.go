// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package btcunit provides a set of types for dealing with bitcoin units.
package btcunit

import (
	"errors"
	"log/slog"
	"math"
	"math/big"
	"strconv"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
)

const (
	// kilo is a generic multiplier for kilo units.
	kilo = 1000

	// floatStringPrecision is the number of decimal places to use when
	// converting a fee rate to a string. We use 3 decimal places so that
	// boosted fractional rates (e.g. 1.5 sat/vb) are displayed without
	// being rounded.
	floatStringPrecision = 3
)

var (
	// ErrInvalidFeeRate is returned when a fee rate cannot be represented,
	// e.g. it is negative, NaN or infinite.
	ErrInvalidFeeRate = errors.New("invalid fee rate")

	// ZeroSatPerVByte is a fee rate of 0 sat/vb.
	ZeroSatPerVByte = NewSatPerVByte(0)
)

// SatPerVByte represents a fee rate in sat/vbyte. Internally the rate is
// stored as satoshis per kilo-weight-unit (sat/kwu) in a rational number, so
// fractional rates produced by a fee multiplier do not lose precision before
// a fee is computed. The `String()` method is the only one that presents the
// fee rate in sat/vbyte.
type SatPerVByte struct {
	// satsPerKWU is the fee rate in satoshis per kilo-weight-unit. A nil
	// value is treated as a zero rate so the zero value of SatPerVByte is
	// usable.
	satsPerKWU *big.Rat
}

// NewSatPerVByte creates a new fee rate in sat/vb.
func NewSatPerVByte(rate btcutil.Amount) SatPerVByte {
	return CalcSatPerVByte(rate, NewVByte(1))
}

// CalcSatPerVByte calculates the fee rate in sat/vb for a given fee and size.
func CalcSatPerVByte(fee btcutil.Amount, vb VByte) SatPerVByte {
	// To convert the rate to the canonical sat/kwu unit, we use the
	// formula: (fee * 1000) / size_in_wu.
	if vb.wu == 0 {
		return SatPerVByte{satsPerKWU: big.NewRat(0, 1)}
	}

	return SatPerVByte{satsPerKWU: big.NewRat(
		int64(fee*kilo), safeUint64ToInt64(vb.wu),
	)}
}

// SatPerVByteFromFloat creates a fee rate from a floating point sat/vb value,
// as returned by fee estimation services.
func SatPerVByteFromFloat(rate float64) (SatPerVByte, error) {
	vbRate, err := decimalRat(rate)
	if err != nil {
		return ZeroSatPerVByte, err
	}

	// 1 sat/vb equals kilo/WitnessScaleFactor sat/kwu.
	vbRate.Mul(vbRate, big.NewRat(kilo, blockchain.WitnessScaleFactor))

	return SatPerVByte{satsPerKWU: vbRate}, nil
}

// decimalRat converts a finite, non-negative float to the rational of its
// shortest decimal representation, so 1.1 becomes exactly 11/10 rather than
// the binary value closest to it.
func decimalRat(v float64) (*big.Rat, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, ErrInvalidFeeRate
	}

	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', -1, 64))
	if !ok {
		return nil, ErrInvalidFeeRate
	}

	return r, nil
}

// rat returns the canonical sat/kwu rate, mapping the zero value to zero.
func (s SatPerVByte) rat() *big.Rat {
	if s.satsPerKWU == nil {
		return big.NewRat(0, 1)
	}

	return s.satsPerKWU
}

// Scale multiplies the fee rate by the given factor. The factor must be a
// finite, non-negative number.
func (s SatPerVByte) Scale(factor float64) (SatPerVByte, error) {
	f, err := decimalRat(factor)
	if err != nil {
		return ZeroSatPerVByte, err
	}

	return SatPerVByte{satsPerKWU: f.Mul(f, s.rat())}, nil
}

// FeeForWeight calculates the fee resulting from this fee rate and the given
// weight in weight units (wu). The result is rounded down.
func (s SatPerVByte) FeeForWeight(weightUnit WeightUnit) btcutil.Amount {
	fee := new(big.Rat).Mul(
		s.rat(), big.NewRat(safeUint64ToInt64(weightUnit.wu), kilo),
	)

	quotient := new(big.Int).Div(fee.Num(), fee.Denom())

	return btcutil.Amount(quotient.Int64())
}

// FeeForWeightRoundUp calculates the fee resulting from this fee rate and the
// given weight in weight units (wu), rounding up to the nearest satoshi.
func (s SatPerVByte) FeeForWeightRoundUp(weightUnit WeightUnit) btcutil.Amount {
	fee := new(big.Rat).Mul(
		s.rat(), big.NewRat(safeUint64ToInt64(weightUnit.wu), kilo),
	)

	// Ceiling division: (numerator + denominator - 1) / denominator.
	numerator := fee.Num()
	denominator := fee.Denom()

	result := new(big.Int).Add(numerator, denominator)
	result.Sub(result, big.NewInt(1))
	result.Div(result, denominator)

	return btcutil.Amount(result.Int64())
}

// FeeForVByte calculates the fee resulting from this fee rate and the given
// size in vbytes (vb), rounded down.
func (s SatPerVByte) FeeForVByte(vb VByte) btcutil.Amount {
	return s.FeeForWeight(vb.ToWU())
}

// FeeForVByteRoundUp calculates the fee resulting from this fee rate and the
// given size in vbytes (vb), rounded up.
func (s SatPerVByte) FeeForVByteRoundUp(vb VByte) btcutil.Amount {
	return s.FeeForWeightRoundUp(vb.ToWU())
}

// IsZero returns true if the fee rate is zero.
func (s SatPerVByte) IsZero() bool {
	return s.rat().Sign() == 0
}

// String returns a human-readable string of the fee rate.
func (s SatPerVByte) String() string {
	// The WitnessScaleFactor (4) converts weight units to vbytes and the
	// `kilo` constant scales kilo-weight-units back to weight units.
	vbRate := new(big.Rat).Mul(
		s.rat(), big.NewRat(blockchain.WitnessScaleFactor, kilo),
	)

	return vbRate.FloatString(floatStringPrecision) + " sat/vb"
}

// Equal returns true if the fee rate is equal to the other fee rate.
func (s SatPerVByte) Equal(other SatPerVByte) bool {
	return s.rat().Cmp(other.rat()) == 0
}

// GreaterThan returns true if the fee rate is greater than the other fee rate.
func (s SatPerVByte) GreaterThan(other SatPerVByte) bool {
	return s.rat().Cmp(other.rat()) > 0
}

// LessThan returns true if the fee rate is less than the other fee rate.
func (s SatPerVByte) LessThan(other SatPerVByte) bool {
	return s.rat().Cmp(other.rat()) < 0
}

// LessThanOrEqual returns true if the fee rate is less than or equal to the
// other fee rate.
func (s SatPerVByte) LessThanOrEqual(other SatPerVByte) bool {
	return s.rat().Cmp(other.rat()) <= 0
}

// safeUint64ToInt64 converts a uint64 to an int64, capping at math.MaxInt64.
// In practice the values being converted are transaction weights or sizes,
// which are limited by consensus rules and are not expected to overflow.
func safeUint64ToInt64(u uint64) int64 {
	if u > math.MaxInt64 {
		slog.Warn("Capping uint64 value to math.MaxInt64",
			slog.Uint64("old", u), slog.Int64("new", math.MaxInt64))

		return math.MaxInt64
	}

	return int64(u)
}
