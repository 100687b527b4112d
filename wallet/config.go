// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"
	"math"

	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
)

var (
	// DefaultMaxFeeRate is the highest fee rate the sender will pay. A
	// rate above it is treated as a broken estimate.
	//
	//nolint:mnd // 1000 sat/vb default max fee.
	DefaultMaxFeeRate = btcunit.NewSatPerVByte(1000)

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds the settings of a Sender. It is passed explicitly and never
// kept in package state, so senders for different networks can coexist.
type Config struct {
	// Network selects address prefixes, WIF versions and signing params.
	Network address.Network

	// FeeTier selects the recommended rate of the fee estimate to use.
	FeeTier chain.FeeTier

	// FeeRateMultiplier scales the selected rate. Zero means unset and is
	// replaced by the default of 1 in Validate. Negative, NaN and infinite
	// values are rejected.
	FeeRateMultiplier float64

	// MaxFeeRate caps the scaled fee rate. DefaultMaxFeeRate is used when
	// zero.
	MaxFeeRate btcunit.SatPerVByte

	// DryRun builds and signs transactions without broadcasting them.
	DryRun bool
}

// DefaultConfig returns the configuration for the given network with the
// fastest fee tier and no fee multiplier.
func DefaultConfig(net address.Network) Config {
	return Config{
		Network:           net,
		FeeTier:           chain.FeeTierFastest,
		FeeRateMultiplier: 1,
		MaxFeeRate:        DefaultMaxFeeRate,
	}
}

// Validate checks the config and fills in defaults for zero values.
func (c *Config) Validate() error {
	if c.FeeRateMultiplier == 0 {
		c.FeeRateMultiplier = 1
	}

	if c.FeeRateMultiplier < 0 || math.IsNaN(c.FeeRateMultiplier) ||
		math.IsInf(c.FeeRateMultiplier, 0) {

		return fmt.Errorf("%w: fee rate multiplier %v", ErrInvalidConfig,
			c.FeeRateMultiplier)
	}

	if c.MaxFeeRate.IsZero() {
		c.MaxFeeRate = DefaultMaxFeeRate
	}

	if c.Network != address.Mainnet && c.Network != address.Testnet {
		return fmt.Errorf("%w: network %v", ErrInvalidConfig, c.Network)
	}

	return nil
}
