package address

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

var (
	// ErrUnsupportedType is returned when an operation is asked to handle
	// the Invalid address type.
	ErrUnsupportedType = errors.New("unsupported address type")

	// ErrUncompressedKey is returned when a segwit address is requested
	// for a key whose WIF asks for an uncompressed public key. Segwit
	// programs only commit to compressed keys.
	ErrUncompressedKey = errors.New("segwit requires a compressed key")
)

// Derive returns the address of the given type controlled by the key.
func Derive(km *KeyMaterial, t Type, net Network) (btcutil.Address, error) {
	params := net.Params()

	if t.IsWitness() && t != Taproot && !km.Compressed() {
		return nil, fmt.Errorf("%w: %v", ErrUncompressedKey, t)
	}

	switch t {
	case Legacy:
		pkHash := btcutil.Hash160(km.SerializedPubKey())
		return btcutil.NewAddressPubKeyHash(pkHash, params)

	case NestedSegwit:
		redeemScript, err := RedeemScript(km, net)
		if err != nil {
			return nil, err
		}

		return btcutil.NewAddressScriptHash(redeemScript, params)

	case NativeSegwit:
		pkHash := btcutil.Hash160(km.SerializedPubKey())
		return btcutil.NewAddressWitnessPubKeyHash(pkHash, params)

	case Taproot:
		outputKey := km.TaprootOutputKey()
		return btcutil.NewAddressTaproot(
			schnorr.SerializePubKey(outputKey), params,
		)

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
	}
}

// DeriveAddress returns the encoded address of the given type controlled by
// the key.
func DeriveAddress(km *KeyMaterial, t Type, net Network) (string, error) {
	addr, err := Derive(km, t, net)
	if err != nil {
		return "", err
	}

	return addr.EncodeAddress(), nil
}

// VerifyOwnership returns true if the key controls the claimed address when
// interpreted as the given type. Any derivation failure counts as a mismatch.
func VerifyOwnership(claimed string, km *KeyMaterial, t Type,
	net Network) bool {

	derived, err := DeriveAddress(km, t, net)
	if err != nil {
		return false
	}

	return derived == claimed
}

// RedeemScript returns the P2WPKH witness program that a nested segwit
// address wraps in P2SH.
func RedeemScript(km *KeyMaterial, net Network) ([]byte, error) {
	pkHash := btcutil.Hash160(km.PubKey.SerializeCompressed())
	witnessAddr, err := btcutil.NewAddressWitnessPubKeyHash(
		pkHash, net.Params(),
	)
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(witnessAddr)
}

// Decode parses an address string for the network and returns it together
// with its classified type.
func Decode(addr string, net Network) (btcutil.Address, Type, error) {
	t := Classify(addr, net)
	if t == Invalid {
		return nil, Invalid, fmt.Errorf("%w: %q", ErrUnsupportedType,
			addr)
	}

	decoded, err := btcutil.DecodeAddress(addr, net.Params())
	if err != nil {
		return nil, Invalid, err
	}

	if !decoded.IsForNet(net.Params()) {
		return nil, Invalid, fmt.Errorf("%w: %q", ErrWrongNetwork,
			addr)
	}

	return decoded, t, nil
}
