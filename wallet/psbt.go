// Copyright (c) 2020 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/chain"
)

// InputDescriptor is the per-input metadata a signer needs. Its concrete type
// is chosen by the address type of the funding address, and each type carries
// only the fields its signing method uses. The interface is sealed.
type InputDescriptor interface {
	// AddressType returns the address type the descriptor belongs to.
	AddressType() address.Type

	// PrevOut returns the output being spent.
	PrevOut(op wire.OutPoint) (*wire.TxOut, error)

	// decorate copies the descriptor into a PSBT input.
	decorate(in *psbt.PInput)
}

// LegacyInput describes a P2PKH input. Non-witness signatures commit to the
// previous output only through the txid, so the full previous transaction is
// carried to prove the spent amount.
type LegacyInput struct {
	PrevTx *wire.MsgTx
}

// NestedSegwitInput describes a P2SH-P2WPKH input.
type NestedSegwitInput struct {
	WitnessUtxo  *wire.TxOut
	RedeemScript []byte
}

// NativeSegwitInput describes a P2WPKH input.
type NativeSegwitInput struct {
	WitnessUtxo *wire.TxOut
}

// TaprootInput describes a P2TR key-path input.
type TaprootInput struct {
	WitnessUtxo *wire.TxOut

	// InternalKey is the 32-byte x-only key before the taproot tweak.
	InternalKey []byte
}

// Compile-time checks that every variant implements InputDescriptor.
var (
	_ InputDescriptor = (*LegacyInput)(nil)
	_ InputDescriptor = (*NestedSegwitInput)(nil)
	_ InputDescriptor = (*NativeSegwitInput)(nil)
	_ InputDescriptor = (*TaprootInput)(nil)
)

// AddressType returns address.Legacy.
func (*LegacyInput) AddressType() address.Type { return address.Legacy }

// PrevOut returns the spent output of the previous transaction.
func (l *LegacyInput) PrevOut(op wire.OutPoint) (*wire.TxOut, error) {
	if l.PrevTx == nil || int(op.Index) >= len(l.PrevTx.TxOut) {
		return nil, fmt.Errorf("%w: %v", ErrMissingPreviousTransaction,
			op)
	}

	return l.PrevTx.TxOut[op.Index], nil
}

func (l *LegacyInput) decorate(in *psbt.PInput) {
	in.NonWitnessUtxo = l.PrevTx
	in.SighashType = txscript.SigHashAll
}

// AddressType returns address.NestedSegwit.
func (*NestedSegwitInput) AddressType() address.Type {
	return address.NestedSegwit
}

// PrevOut returns the witness UTXO.
func (n *NestedSegwitInput) PrevOut(wire.OutPoint) (*wire.TxOut, error) {
	return n.WitnessUtxo, nil
}

func (n *NestedSegwitInput) decorate(in *psbt.PInput) {
	in.WitnessUtxo = n.WitnessUtxo
	in.RedeemScript = n.RedeemScript
	in.SighashType = txscript.SigHashAll
}

// AddressType returns address.NativeSegwit.
func (*NativeSegwitInput) AddressType() address.Type {
	return address.NativeSegwit
}

// PrevOut returns the witness UTXO.
func (n *NativeSegwitInput) PrevOut(wire.OutPoint) (*wire.TxOut, error) {
	return n.WitnessUtxo, nil
}

func (n *NativeSegwitInput) decorate(in *psbt.PInput) {
	in.WitnessUtxo = n.WitnessUtxo
	in.SighashType = txscript.SigHashAll
}

// AddressType returns address.Taproot.
func (*TaprootInput) AddressType() address.Type { return address.Taproot }

// PrevOut returns the witness UTXO.
func (tr *TaprootInput) PrevOut(wire.OutPoint) (*wire.TxOut, error) {
	return tr.WitnessUtxo, nil
}

func (tr *TaprootInput) decorate(in *psbt.PInput) {
	in.WitnessUtxo = tr.WitnessUtxo
	in.TaprootInternalKey = tr.InternalKey
	in.SighashType = txscript.SigHashDefault
}

// SpendInput pairs a UTXO with the descriptor and key that spend it. A draft
// keeps them in input order so a descriptor is always signed with the key of
// its own funding address.
type SpendInput struct {
	Utxo       chain.Utxo
	Descriptor InputDescriptor
	Key        *address.KeyMaterial
}

// describeInput builds the descriptor of a UTXO of the funding group. Only
// legacy inputs need the previous transaction; the witness types rebuild
// their spent output from the funding address and the UTXO value.
func describeInput(ctx context.Context, prevTxs chain.PrevTxFetcher,
	group *FundingGroup, utxo chain.Utxo,
	net address.Network) (InputDescriptor, error) {

	switch group.Type {
	case address.Legacy:
		prevTx, err := fetchPrevTx(ctx, prevTxs, utxo)
		if err != nil {
			return nil, err
		}

		return &LegacyInput{PrevTx: prevTx}, nil

	case address.NestedSegwit:
		redeemScript, err := address.RedeemScript(group.Key, net)
		if err != nil {
			return nil, err
		}

		witnessUtxo, err := group.witnessUtxo(utxo, net)
		if err != nil {
			return nil, err
		}

		return &NestedSegwitInput{
			WitnessUtxo:  witnessUtxo,
			RedeemScript: redeemScript,
		}, nil

	case address.NativeSegwit:
		witnessUtxo, err := group.witnessUtxo(utxo, net)
		if err != nil {
			return nil, err
		}

		return &NativeSegwitInput{WitnessUtxo: witnessUtxo}, nil

	case address.Taproot:
		witnessUtxo, err := group.witnessUtxo(utxo, net)
		if err != nil {
			return nil, err
		}

		return &TaprootInput{
			WitnessUtxo: witnessUtxo,
			InternalKey: group.Key.XOnlyPubKey(),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %v", address.ErrUnsupportedType,
			group.Type)
	}
}

// fetchPrevTx fetches and decodes the transaction that created the UTXO and
// checks that it really is that transaction.
func fetchPrevTx(ctx context.Context, prevTxs chain.PrevTxFetcher,
	utxo chain.Utxo) (*wire.MsgTx, error) {

	txHex, err := prevTxs.FetchPrevTxHex(ctx, utxo.TxID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %w",
			ErrMissingPreviousTransaction, utxo.TxID, err)
	}

	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v",
			ErrMissingPreviousTransaction, utxo.TxID, err)
	}

	prevTx := wire.NewMsgTx(wire.TxVersion)
	if err := prevTx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v: %v",
			ErrMissingPreviousTransaction, utxo.TxID, err)
	}

	if prevTx.TxHash() != utxo.TxID {
		return nil, fmt.Errorf("%w: got tx %v for %v",
			ErrMissingPreviousTransaction, prevTx.TxHash(),
			utxo.TxID)
	}

	if int(utxo.Vout) >= len(prevTx.TxOut) {
		return nil, fmt.Errorf("%w: %v has no output %d",
			ErrMissingPreviousTransaction, utxo.TxID, utxo.Vout)
	}

	return prevTx, nil
}

// prevOutputFetcher returns a txscript.PrevOutFetcher over the spent outputs
// of every input of the draft.
func prevOutputFetcher(packet *psbt.Packet,
	inputs []SpendInput) (*txscript.MultiPrevOutFetcher, error) {

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for idx, txIn := range packet.UnsignedTx.TxIn {
		prevOut, err := inputs[idx].Descriptor.PrevOut(
			txIn.PreviousOutPoint,
		)
		if err != nil {
			return nil, err
		}

		fetcher.AddPrevOut(txIn.PreviousOutPoint, prevOut)
	}

	return fetcher, nil
}
