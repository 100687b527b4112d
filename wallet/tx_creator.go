// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
	"github.com/disco-quotidie/send-btc-simplified/wallet/coinselect"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// FundingGroup is a set of UTXOs of one address together with the key that
// controls the address.
type FundingGroup struct {
	// Address is the encoded funding address.
	Address string

	// Type is the classified type of Address.
	Type address.Type

	// Key controls Address.
	Key *address.KeyMaterial

	// Utxos are the coins of Address to spend, in spending order.
	Utxos []chain.Utxo
}

// witnessUtxo rebuilds the output being spent from the funding address and
// the UTXO value.
func (g *FundingGroup) witnessUtxo(utxo chain.Utxo,
	net address.Network) (*wire.TxOut, error) {

	addr, err := btcutil.DecodeAddress(g.Address, net.Params())
	if err != nil {
		return nil, fmt.Errorf("decode funding address %s: %w",
			g.Address, err)
	}

	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, err
	}

	return wire.NewTxOut(int64(utxo.Value), pkScript), nil
}

// Output is a payment to an address.
type Output struct {
	Address string
	Value   btcutil.Amount
}

// BuildRequest describes the transaction to assemble.
type BuildRequest struct {
	// Groups are the selected coins grouped by funding address. Inputs
	// are added in group order, then UTXO order.
	Groups []FundingGroup

	// Destination is the first output.
	Destination Output

	// Change is the optional second output.
	Change fn.Option[Output]
}

// SignedTx is a finalized transaction ready for broadcast.
type SignedTx struct {
	// Tx is the final transaction.
	Tx *wire.MsgTx

	// Hex is the canonical serialization of Tx.
	Hex string

	// TxID is the hash of Tx.
	TxID chainhash.Hash

	// Fee is the difference between the input and output values.
	Fee btcutil.Amount

	// VSize is the virtual size of Tx.
	VSize btcunit.VByte
}

// Draft is a transaction under construction. The inputs of the wrapped PSBT
// line up with Inputs. A draft is mutable until it is finalized.
type Draft struct {
	Packet *psbt.Packet
	Inputs []SpendInput
}

// Assembler turns coin selections into signed transactions.
type Assembler struct {
	prevTxs chain.PrevTxFetcher
	net     address.Network
}

// NewAssembler creates an assembler that looks up legacy previous
// transactions with prevTxs.
func NewAssembler(prevTxs chain.PrevTxFetcher,
	net address.Network) *Assembler {

	return &Assembler{
		prevTxs: prevTxs,
		net:     net,
	}
}

// Build assembles, signs and finalizes the transaction described by req. Any
// failure aborts the build; nothing is retried.
func (a *Assembler) Build(ctx context.Context,
	req *BuildRequest) (*SignedTx, error) {

	draft, err := a.CreateDraft(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := draft.Sign(); err != nil {
		return nil, err
	}

	return draft.Finalize()
}

// CreateDraft describes every input of the request and adds the outputs,
// returning an unsigned draft.
func (a *Assembler) CreateDraft(ctx context.Context,
	req *BuildRequest) (*Draft, error) {

	if len(req.Groups) == 0 {
		return nil, coinselect.ErrNoInputs
	}

	var (
		seen      = fn.NewSet[wire.OutPoint]()
		inputs    []SpendInput
		outpoints []*wire.OutPoint
		sequences []uint32
		totalIn   btcutil.Amount
	)
	for i := range req.Groups {
		group := &req.Groups[i]

		if group.Key == nil {
			return nil, fmt.Errorf("%w: no key for %s",
				address.ErrInvalidPrivateKey, group.Address)
		}

		for _, utxo := range group.Utxos {
			op := utxo.OutPoint()
			if seen.Contains(op) {
				return nil, fmt.Errorf("%w: %v",
					ErrDuplicateInput, op)
			}
			seen.Add(op)

			desc, err := describeInput(
				ctx, a.prevTxs, group, utxo, a.net,
			)
			if err != nil {
				return nil, err
			}

			inputs = append(inputs, SpendInput{
				Utxo:       utxo,
				Descriptor: desc,
				Key:        group.Key,
			})
			outpoints = append(outpoints, &op)
			sequences = append(sequences, wire.MaxTxInSequenceNum)
			totalIn += utxo.Value
		}
	}

	if len(inputs) == 0 {
		return nil, coinselect.ErrNoInputs
	}

	outputs := []Output{req.Destination}
	if req.Change.IsSome() {
		outputs = append(outputs, req.Change.UnwrapOr(Output{}))
	}

	txOuts, totalOut, err := a.makeTxOuts(outputs)
	if err != nil {
		return nil, err
	}

	if totalOut > totalIn {
		return nil, fmt.Errorf("%w: outputs %v exceed inputs %v",
			coinselect.ErrInsufficientFunds, totalOut, totalIn)
	}

	packet, err := psbt.New(outpoints, txOuts, 2, 0, sequences)
	if err != nil {
		return nil, err
	}

	for idx, in := range inputs {
		in.Descriptor.decorate(&packet.Inputs[idx])
	}

	log.Debugf("Created draft with %d inputs and %d outputs, "+
		"in=%v out=%v", len(inputs), len(txOuts), totalIn, totalOut)

	return &Draft{
		Packet: packet,
		Inputs: inputs,
	}, nil
}

// makeTxOuts converts the outputs into transaction outputs and applies the
// relay dust policy to each.
func (a *Assembler) makeTxOuts(outputs []Output) ([]*wire.TxOut,
	btcutil.Amount, error) {

	if len(outputs) == 0 || outputs[0].Address == "" {
		return nil, 0, ErrNoOutputs
	}

	var (
		txOuts = make([]*wire.TxOut, 0, len(outputs))
		total  btcutil.Amount
	)
	for _, out := range outputs {
		addr, err := btcutil.DecodeAddress(out.Address, a.net.Params())
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s: %v",
				ErrInvalidToAddress, out.Address, err)
		}

		if !addr.IsForNet(a.net.Params()) {
			return nil, 0, fmt.Errorf("%w: %s is not a %v address",
				ErrInvalidToAddress, out.Address, a.net)
		}

		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, 0, err
		}

		txOut := wire.NewTxOut(int64(out.Value), pkScript)
		err = txrules.CheckOutput(txOut, txrules.DefaultRelayFeePerKb)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v to %s: %v",
				coinselect.ErrDustOutput, out.Value, out.Address,
				err)
		}

		txOuts = append(txOuts, txOut)
		total += out.Value
	}

	return txOuts, total, nil
}
