// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package address classifies bitcoin address strings and binds private keys
// to the addresses they control.
package address

// Type is the script type of a bitcoin address. It determines the shape of
// the input metadata needed to spend from the address and the way the input
// is signed.
type Type uint8

const (
	// Invalid is the catch-all for strings that are not a recognized
	// address on the selected network. No operation proceeds past it.
	Invalid Type = iota

	// Legacy is a pay-to-pubkey-hash (P2PKH) address.
	Legacy

	// NestedSegwit is a pay-to-witness-pubkey-hash program wrapped in a
	// pay-to-script-hash (P2SH-P2WPKH) address.
	NestedSegwit

	// NativeSegwit is a segwit v0 pay-to-witness-pubkey-hash (P2WPKH)
	// address.
	NativeSegwit

	// Taproot is a segwit v1 pay-to-taproot (P2TR) key-path address.
	Taproot
)

// String returns the canonical name of the address type.
func (t Type) String() string {
	switch t {
	case Legacy:
		return "legacy"

	case NestedSegwit:
		return "nested-segwit"

	case NativeSegwit:
		return "native-segwit"

	case Taproot:
		return "taproot"

	default:
		return "invalid"
	}
}

// IsValid returns true for every type except Invalid.
func (t Type) IsValid() bool {
	return t >= Legacy && t <= Taproot
}

// IsWitness returns true if inputs of this type carry witness data.
func (t Type) IsWitness() bool {
	return t == NestedSegwit || t == NativeSegwit || t == Taproot
}
