package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
	"github.com/stretchr/testify/require"
)

var (
	errFetch     = errors.New("fetch fail")
	errBroadcast = errors.New("broadcast fail")
)

// testNet is the network used throughout the wallet tests.
const testNet = address.Testnet

// testAccount is a key with one of its addresses.
type testAccount struct {
	key  *address.KeyMaterial
	wif  string
	addr string
	typ  address.Type
}

// source returns the account as a funding source.
func (a *testAccount) source() FundingSource {
	return FundingSource{Address: a.addr, WIF: a.wif}
}

// group returns the account as a funding group spending utxos.
func (a *testAccount) group(utxos ...chain.Utxo) FundingGroup {
	return FundingGroup{
		Address: a.addr,
		Type:    a.typ,
		Key:     a.key,
		Utxos:   utxos,
	}
}

// newTestAccount derives a deterministic account from seed.
func newTestAccount(t *testing.T, seed byte,
	addrType address.Type) *testAccount {

	t.Helper()

	var raw [32]byte
	raw[0] = 0x5a
	raw[31] = seed

	priv, _ := btcec.PrivKeyFromBytes(raw[:])

	wif, err := btcutil.NewWIF(priv, testNet.Params(), true)
	require.NoError(t, err)

	km, err := address.NewKeyMaterial(wif.String(), testNet)
	require.NoError(t, err)

	addr, err := address.DeriveAddress(km, addrType, testNet)
	require.NoError(t, err)

	return &testAccount{
		key:  km,
		wif:  wif.String(),
		addr: addr,
		typ:  addrType,
	}
}

// fundingTx creates a transaction paying the given values to the address and
// returns it with its hex and the confirmed UTXOs it creates.
func fundingTx(t *testing.T, addr string, seed byte,
	values ...btcutil.Amount) (*wire.MsgTx, string, []chain.Utxo) {

	t.Helper()

	decoded, err := btcutil.DecodeAddress(addr, testNet.Params())
	require.NoError(t, err)

	pkScript, err := txscript.PayToAddrScript(decoded)
	require.NoError(t, err)

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(
		&wire.OutPoint{Hash: chainhash.Hash{seed}, Index: 0}, nil, nil,
	))
	for _, value := range values {
		tx.AddTxOut(wire.NewTxOut(int64(value), pkScript))
	}

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))

	utxos := make([]chain.Utxo, 0, len(values))
	for i, value := range values {
		utxos = append(utxos, chain.Utxo{
			TxID:      tx.TxHash(),
			Vout:      uint32(i),
			Value:     value,
			Confirmed: true,
		})
	}

	return tx, hex.EncodeToString(buf.Bytes()), utxos
}

// feeEstimate returns an estimate with every tier at rate sat/vb.
func feeEstimate(rate btcutil.Amount) *chain.FeeEstimate {
	r := btcunit.NewSatPerVByte(rate)

	return &chain.FeeEstimate{
		Fastest:  r,
		HalfHour: r,
		Hour:     r,
		Economy:  r,
		Minimum:  r,
	}
}

// decodeTx parses a hex serialized transaction.
func decodeTx(t *testing.T, txHex string) *wire.MsgTx {
	t.Helper()

	raw, err := hex.DecodeString(txHex)
	require.NoError(t, err)

	tx := wire.NewMsgTx(2)
	require.NoError(t, tx.Deserialize(bytes.NewReader(raw)))

	return tx
}

// payScript returns the output script of an address.
func payScript(t *testing.T, addr string) []byte {
	t.Helper()

	decoded, err := btcutil.DecodeAddress(addr, testNet.Params())
	require.NoError(t, err)

	pkScript, err := txscript.PayToAddrScript(decoded)
	require.NoError(t, err)

	return pkScript
}
