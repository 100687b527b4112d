// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/mempool"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
)

// Sign signs every input of the draft in input order with the key of the
// input's funding address.
//
// The signatures are attached to the PSBT the way BIP-174 describes:
//   - legacy and segwit v0 inputs get a partial signature through a
//     psbt.Updater, which also checks the signature against the input's UTXO
//     fields;
//   - taproot inputs get a BIP-340 key-path signature made with the tweaked
//     private key in TaprootKeySpendSig.
func (d *Draft) Sign() error {
	fetcher, err := prevOutputFetcher(d.Packet, d.Inputs)
	if err != nil {
		return err
	}

	tx := d.Packet.UnsignedTx
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	updater, err := psbt.NewUpdater(d.Packet)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSigning, err)
	}

	for idx, in := range d.Inputs {
		err := signInput(updater, idx, in, fetcher, sigHashes)
		if err != nil {
			return fmt.Errorf("%w: input %d (%v): %v", ErrSigning,
				idx, in.Descriptor.AddressType(), err)
		}
	}

	return nil
}

// signInput signs a single input according to its descriptor.
func signInput(u *psbt.Updater, idx int, in SpendInput,
	fetcher txscript.PrevOutputFetcher,
	sigHashes *txscript.TxSigHashes) error {

	tx := u.Upsbt.UnsignedTx
	prevOut := fetcher.FetchPrevOutput(tx.TxIn[idx].PreviousOutPoint)
	if prevOut == nil {
		return fmt.Errorf("no previous output for input %d", idx)
	}

	key := in.Key.SigningKey(in.Descriptor.AddressType())

	var (
		sig          []byte
		pubKey       []byte
		redeemScript []byte
		err          error
	)
	switch desc := in.Descriptor.(type) {
	case *LegacyInput:
		sig, err = txscript.RawTxInSignature(
			tx, idx, prevOut.PkScript, txscript.SigHashAll, key,
		)
		pubKey = in.Key.SerializedPubKey()

	// For segwit v0 the signature hash commits to the P2PKH script of the
	// witness program, which txscript derives from the P2WPKH script.
	case *NestedSegwitInput:
		sig, err = txscript.RawTxInWitnessSignature(
			tx, sigHashes, idx, prevOut.Value, desc.RedeemScript,
			txscript.SigHashAll, key,
		)
		pubKey = in.Key.PubKey.SerializeCompressed()
		redeemScript = desc.RedeemScript

	case *NativeSegwitInput:
		sig, err = txscript.RawTxInWitnessSignature(
			tx, sigHashes, idx, prevOut.Value, prevOut.PkScript,
			txscript.SigHashAll, key,
		)
		pubKey = in.Key.PubKey.SerializeCompressed()

	case *TaprootInput:
		sig, err = taprootKeySpendSig(tx, idx, fetcher, sigHashes, key)
		if err != nil {
			return err
		}

		u.Upsbt.Inputs[idx].TaprootKeySpendSig = sig

		return nil

	default:
		return fmt.Errorf("%w: %T", address.ErrUnsupportedType, desc)
	}
	if err != nil {
		return err
	}

	outcome, err := u.Sign(idx, sig, pubKey, redeemScript, nil)
	if err != nil {
		return err
	}

	if outcome != psbt.SignSuccesful {
		return fmt.Errorf("unexpected sign outcome %v", outcome)
	}

	return nil
}

// taprootKeySpendSig returns the BIP-340 signature of a key-path spend with
// the default sighash. key must be the tweaked private key of the output.
func taprootKeySpendSig(tx *wire.MsgTx, idx int,
	fetcher txscript.PrevOutputFetcher, sigHashes *txscript.TxSigHashes,
	key *btcec.PrivateKey) ([]byte, error) {

	sigHash, err := txscript.CalcTaprootSignatureHash(
		sigHashes, txscript.SigHashDefault, tx, idx, fetcher,
	)
	if err != nil {
		return nil, err
	}

	sig, err := schnorr.Sign(key, sigHash)
	if err != nil {
		return nil, err
	}

	return sig.Serialize(), nil
}

// Finalize builds the final scriptSig and witness of every input, extracts the
// network transaction and executes every input script against it. The draft
// must be fully signed.
func (d *Draft) Finalize() (*SignedTx, error) {
	if err := psbt.MaybeFinalizeAll(d.Packet); err != nil {
		return nil, fmt.Errorf("%w: finalize: %v", ErrSigning, err)
	}

	tx, err := psbt.Extract(d.Packet)
	if err != nil {
		return nil, fmt.Errorf("%w: extract: %v", ErrSigning, err)
	}

	fetcher, err := prevOutputFetcher(d.Packet, d.Inputs)
	if err != nil {
		return nil, err
	}

	if err := validateScripts(tx, fetcher); err != nil {
		return nil, err
	}

	var totalIn, totalOut btcutil.Amount
	for _, in := range d.Inputs {
		totalIn += in.Utxo.Value
	}
	for _, out := range tx.TxOut {
		totalOut += btcutil.Amount(out.Value)
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}

	vsize := mempool.GetTxVirtualSize(btcutil.NewTx(tx))

	signed := &SignedTx{
		Tx:    tx,
		Hex:   hex.EncodeToString(buf.Bytes()),
		TxID:  tx.TxHash(),
		Fee:   totalIn - totalOut,
		VSize: btcunit.NewVByte(uint64(vsize)),
	}

	log.Debugf("Signed tx %v (fee=%v, vsize=%v): %v", signed.TxID,
		signed.Fee, signed.VSize, newLogClosure(func() string {
			return spew.Sdump(tx)
		}))

	return signed, nil
}

// validateScripts executes the script of every input of the final
// transaction.
func validateScripts(tx *wire.MsgTx,
	fetcher txscript.PrevOutputFetcher) error {

	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for idx, txIn := range tx.TxIn {
		prevOut := fetcher.FetchPrevOutput(txIn.PreviousOutPoint)
		if prevOut == nil {
			return fmt.Errorf("%w: input %d has no previous output",
				ErrScriptValidation, idx)
		}

		vm, err := txscript.NewEngine(
			prevOut.PkScript, tx, idx, txscript.StandardVerifyFlags,
			nil, sigHashes, prevOut.Value, fetcher,
		)
		if err != nil {
			return fmt.Errorf("%w: input %d: %v", ErrScriptValidation,
				idx, err)
		}

		if err := vm.Execute(); err != nil {
			return fmt.Errorf("%w: input %d: %v", ErrScriptValidation,
				idx, err)
		}
	}

	return nil
}
