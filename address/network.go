package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// ErrUnknownNetwork is returned when a network name cannot be parsed.
var ErrUnknownNetwork = errors.New("unknown network")

// Network selects the bitcoin network addresses and keys belong to.
type Network uint8

const (
	// Mainnet is the main bitcoin network.
	Mainnet Network = iota

	// Testnet covers the public test networks (testnet3, testnet4 and
	// signet), which share address prefixes and WIF versions.
	Testnet
)

// Params returns the chain parameters used to encode addresses and keys on
// the network.
func (n Network) Params() *chaincfg.Params {
	if n == Testnet {
		return &chaincfg.TestNet3Params
	}

	return &chaincfg.MainNetParams
}

// String returns the name of the network.
func (n Network) String() string {
	if n == Testnet {
		return "testnet"
	}

	return "mainnet"
}

// ParseNetwork parses a network name as given on the command line.
func ParseNetwork(name string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mainnet", "main", "bitcoin":
		return Mainnet, nil

	case "testnet", "testnet3", "testnet4", "test", "signet":
		return Testnet, nil

	default:
		return Mainnet, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
}
