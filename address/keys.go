package address

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

var (
	// ErrInvalidPrivateKey is returned when a WIF string cannot be decoded.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrWrongNetwork is returned when a WIF was encoded for a different
	// network than the one in use.
	ErrWrongNetwork = errors.New("private key is for a different network")
)

// KeyMaterial is a private signing key together with the public key and, for
// taproot spends, the tweaked key derived from it.
//
// Taproot outputs commit to the internal key tweaked with the BIP-341
// "TapTweak" tagged hash, so key-path spends must be signed with the tweaked
// private key rather than the raw one.
type KeyMaterial struct {
	// PrivKey is the raw private key decoded from the WIF.
	PrivKey *btcec.PrivateKey

	// PubKey is the public key of PrivKey.
	PubKey *btcec.PublicKey

	// TweakedPrivKey is PrivKey tweaked with the TapTweak of its x-only
	// public key and an empty script root.
	TweakedPrivKey *btcec.PrivateKey

	// compressed mirrors the compression flag of the WIF, which selects
	// the public key encoding used for legacy addresses.
	compressed bool
}

// NewKeyMaterial decodes a WIF encoded private key and derives the public and
// tweaked keys. The WIF must belong to the given network.
func NewKeyMaterial(wif string, net Network) (*KeyMaterial, error) {
	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	if !decoded.IsForNet(net.Params()) {
		return nil, fmt.Errorf("%w: expected %v", ErrWrongNetwork, net)
	}

	return newKeyMaterial(decoded.PrivKey, decoded.CompressPubKey), nil
}

// NewKeyMaterialFromPrivKey wraps an already decoded private key. The public
// key is always serialized compressed.
func NewKeyMaterialFromPrivKey(privKey *btcec.PrivateKey) *KeyMaterial {
	return newKeyMaterial(privKey, true)
}

func newKeyMaterial(privKey *btcec.PrivateKey, compressed bool) *KeyMaterial {
	return &KeyMaterial{
		PrivKey:        privKey,
		PubKey:         privKey.PubKey(),
		TweakedPrivKey: txscript.TweakTaprootPrivKey(*privKey, nil),
		compressed:     compressed,
	}
}

// Compressed reports whether the public key is serialized compressed.
func (k *KeyMaterial) Compressed() bool {
	return k.compressed
}

// SerializedPubKey returns the public key in the encoding selected by the WIF.
func (k *KeyMaterial) SerializedPubKey() []byte {
	if k.compressed {
		return k.PubKey.SerializeCompressed()
	}

	return k.PubKey.SerializeUncompressed()
}

// XOnlyPubKey returns the 32-byte x-only internal key used for taproot.
func (k *KeyMaterial) XOnlyPubKey() []byte {
	return schnorr.SerializePubKey(k.PubKey)
}

// TaprootOutputKey returns the tweaked output key a key-path only taproot
// output commits to.
func (k *KeyMaterial) TaprootOutputKey() *btcec.PublicKey {
	return txscript.ComputeTaprootKeyNoScript(k.PubKey)
}

// SigningKey returns the private key that signs inputs of the given type:
// the tweaked key for taproot and the raw key for everything else.
func (k *KeyMaterial) SigningKey(t Type) *btcec.PrivateKey {
	if t == Taproot {
		return k.TweakedPrivKey
	}

	return k.PrivKey
}
