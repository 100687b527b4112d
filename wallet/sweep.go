package wallet

import (
	"context"
	"fmt"

	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/disco-quotidie/send-btc-simplified/wallet/coinselect"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

// TransferBtc drains every confirmed UTXO of the sources into a single output
// to the destination, minus the fee.
//
// Every source is validated before any network call and the first invalid
// source aborts the transfer. UTXOs are fetched concurrently, then spent in
// source order, each input signed with its own source's key.
func (s *Sender) TransferBtc(ctx context.Context, sources []FundingSource,
	to string) Result {

	txid, signed, err := s.transferBtc(ctx, sources, to)

	return newResult(txid, signed, err)
}

func (s *Sender) transferBtc(ctx context.Context, sources []FundingSource,
	to string) (string, *SignedTx, error) {

	net := s.cfg.Network

	toType := address.Classify(to, net)
	if toType == address.Invalid {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidToAddress, to)
	}

	groups, err := bindSources(sources, net)
	if err != nil {
		return "", nil, err
	}

	sets, err := s.fetchAllUtxos(ctx, groups)
	if err != nil {
		return "", nil, err
	}

	var (
		funded []FundingGroup
		all    []chain.Utxo
	)
	for i, set := range sets {
		if len(set.Confirmed) == 0 {
			log.Debugf("Source %s has no confirmed utxos",
				groups[i].Address)

			continue
		}

		groups[i].Utxos = set.Confirmed
		funded = append(funded, groups[i])
		all = append(all, set.Confirmed...)
	}

	if len(all) == 0 {
		return "", nil, ErrNoSpendableUtxos
	}

	rate, err := s.feeRate(ctx)
	if err != nil {
		return "", nil, err
	}

	sel, err := coinselect.SelectAll(all, toType, rate)
	if err != nil {
		return "", nil, err
	}

	log.Debugf("Draining %d inputs from %d sources worth %v to %s "+
		"(fee=%v)", len(sel.Inputs), len(funded), sel.Total, to,
		sel.Fee)

	req := &BuildRequest{
		Groups:      funded,
		Destination: Output{Address: to, Value: sel.Target},
		Change:      fn.None[Output](),
	}

	return s.buildAndPublish(ctx, req)
}

// bindSources validates every source in order and returns their groups.
func bindSources(sources []FundingSource,
	net address.Network) ([]FundingGroup, error) {

	if len(sources) == 0 {
		return nil, ErrNoFundingSources
	}

	var (
		seen   = fn.NewSet[string]()
		groups = make([]FundingGroup, 0, len(sources))
	)
	for i, src := range sources {
		if seen.Contains(src.Address) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSource,
				src.Address)
		}
		seen.Add(src.Address)

		t := address.Classify(src.Address, net)
		if t == address.Invalid {
			return nil, fmt.Errorf("%w: source %d: %q",
				ErrInvalidFromAddress, i, src.Address)
		}

		group, err := bindSource(src, t, net)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}

		groups = append(groups, *group)
	}

	return groups, nil
}

// fetchAllUtxos lists the UTXOs of every group concurrently. The result is
// indexed like groups.
func (s *Sender) fetchAllUtxos(ctx context.Context,
	groups []FundingGroup) ([]*chain.UtxoSet, error) {

	sets := make([]*chain.UtxoSet, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i := range groups {
		addr := groups[i].Address

		g.Go(func() error {
			set, err := s.backend.FetchUtxos(gctx, addr)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrFetchUtxos,
					addr, err)
			}

			if set == nil {
				set = &chain.UtxoSet{}
			}
			sets[i] = set

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return sets, nil
}
