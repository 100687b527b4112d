package address

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

const (
	// testWIF is the compressed mainnet WIF of private key 1.
	testWIF = "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn"
)

// keyOne returns private key 1, whose addresses are well known.
func keyOne() *btcec.PrivateKey {
	var raw [32]byte
	raw[31] = 1

	priv, _ := btcec.PrivKeyFromBytes(raw[:])

	return priv
}

// newTestWIF encodes a fresh private key for the network.
func newTestWIF(t *testing.T, net Network, compressed bool) string {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	wif, err := btcutil.NewWIF(priv, net.Params(), compressed)
	require.NoError(t, err)

	return wif.String()
}

// TestNewKeyMaterial checks WIF decoding and network checks.
func TestNewKeyMaterial(t *testing.T) {
	t.Parallel()

	km, err := NewKeyMaterial(testWIF, Mainnet)
	require.NoError(t, err)
	require.True(t, km.Compressed())
	require.Equal(t, keyOne().Serialize(), km.PrivKey.Serialize())

	_, err = NewKeyMaterial(testWIF, Testnet)
	require.ErrorIs(t, err, ErrWrongNetwork)

	_, err = NewKeyMaterial("not-a-wif", Mainnet)
	require.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = NewKeyMaterial("", Mainnet)
	require.ErrorIs(t, err, ErrInvalidPrivateKey)
}

// TestTaprootTweak checks that the tweaked private key controls the taproot
// output key and differs from the raw key.
func TestTaprootTweak(t *testing.T) {
	t.Parallel()

	km := NewKeyMaterialFromPrivKey(keyOne())

	outputKey := km.TaprootOutputKey()
	tweakedPub := km.TweakedPrivKey.PubKey()

	require.Equal(
		t, schnorr.SerializePubKey(outputKey),
		schnorr.SerializePubKey(tweakedPub),
	)
	require.NotEqual(t, km.XOnlyPubKey(), schnorr.SerializePubKey(outputKey))
	require.Len(t, km.XOnlyPubKey(), 32)

	require.Same(t, km.TweakedPrivKey, km.SigningKey(Taproot))
	require.Same(t, km.PrivKey, km.SigningKey(NativeSegwit))
	require.Same(t, km.PrivKey, km.SigningKey(Legacy))
}

// TestDeriveAddressKnownVectors checks derivation against published
// addresses of private key 1.
func TestDeriveAddressKnownVectors(t *testing.T) {
	t.Parallel()

	km, err := NewKeyMaterial(testWIF, Mainnet)
	require.NoError(t, err)

	addr, err := DeriveAddress(km, Legacy, Mainnet)
	require.NoError(t, err)
	require.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", addr)

	addr, err = DeriveAddress(km, NativeSegwit, Mainnet)
	require.NoError(t, err)
	require.Equal(t, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", addr)

	addr, err = DeriveAddress(km, NativeSegwit, Testnet)
	require.NoError(t, err)
	require.Equal(t, "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", addr)

	// The uncompressed encoding of the same key has its own P2PKH address.
	wif, err := btcutil.NewWIF(keyOne(), Mainnet.Params(), false)
	require.NoError(t, err)

	uncompressed, err := NewKeyMaterial(wif.String(), Mainnet)
	require.NoError(t, err)

	addr, err = DeriveAddress(uncompressed, Legacy, Mainnet)
	require.NoError(t, err)
	require.Equal(t, "1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZm", addr)

	_, err = DeriveAddress(uncompressed, NativeSegwit, Mainnet)
	require.ErrorIs(t, err, ErrUncompressedKey)

	_, err = DeriveAddress(uncompressed, NestedSegwit, Mainnet)
	require.ErrorIs(t, err, ErrUncompressedKey)

	// Taproot commits to the x-only key, so both encodings share the
	// same P2TR address.
	compressed, err := NewKeyMaterial(testWIF, Mainnet)
	require.NoError(t, err)

	trCompressed, err := DeriveAddress(compressed, Taproot, Mainnet)
	require.NoError(t, err)

	trUncompressed, err := DeriveAddress(uncompressed, Taproot, Mainnet)
	require.NoError(t, err)
	require.Equal(t, trCompressed, trUncompressed)
}

// TestDeriveAndVerify derives every address type on both networks and checks
// that the result classifies as the requested type and passes the ownership
// check only for the key that derived it.
func TestDeriveAndVerify(t *testing.T) {
	t.Parallel()

	types := []Type{Legacy, NestedSegwit, NativeSegwit, Taproot}

	for _, net := range []Network{Mainnet, Testnet} {
		km, err := NewKeyMaterial(newTestWIF(t, net, true), net)
		require.NoError(t, err)

		other, err := NewKeyMaterial(newTestWIF(t, net, true), net)
		require.NoError(t, err)

		for _, addrType := range types {
			t.Run(net.String()+"/"+addrType.String(), func(t *testing.T) {
				t.Parallel()

				addr, err := DeriveAddress(km, addrType, net)
				require.NoError(t, err)
				require.Equal(t, addrType, Classify(addr, net))

				// Decoding through btcutil must yield the same
				// type and round-trip the encoding.
				decoded, decodedType, err := Decode(addr, net)
				require.NoError(t, err)
				require.Equal(t, addrType, decodedType)
				require.Equal(t, addr, decoded.EncodeAddress())

				require.True(t, VerifyOwnership(addr, km, addrType, net))
				require.False(
					t, VerifyOwnership(addr, other, addrType, net),
				)

				// The same key interpreted as another type must
				// not match.
				for _, otherType := range types {
					if otherType == addrType {
						continue
					}

					require.False(t, VerifyOwnership(
						addr, km, otherType, net,
					))
				}
			})
		}
	}
}

// TestDeriveAddressInvalidType checks that Invalid is rejected.
func TestDeriveAddressInvalidType(t *testing.T) {
	t.Parallel()

	km := NewKeyMaterialFromPrivKey(keyOne())

	_, err := DeriveAddress(km, Invalid, Mainnet)
	require.ErrorIs(t, err, ErrUnsupportedType)
	require.False(t, VerifyOwnership("", km, Invalid, Mainnet))

	_, _, err = Decode("garbage", Mainnet)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

// TestRedeemScript checks the nested segwit redeem script is a version 0
// witness program over the compressed key hash.
func TestRedeemScript(t *testing.T) {
	t.Parallel()

	km := NewKeyMaterialFromPrivKey(keyOne())

	script, err := RedeemScript(km, Mainnet)
	require.NoError(t, err)
	require.Len(t, script, 22)
	require.Equal(t, byte(0x00), script[0])
	require.Equal(t, byte(0x14), script[1])
	require.Equal(
		t, btcutil.Hash160(km.PubKey.SerializeCompressed()), script[2:],
	)
}
