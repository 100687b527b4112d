package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/disco-quotidie/send-btc-simplified/wallet"
)

// errCommandFailed is returned by a command whose workflow did not succeed.
var errCommandFailed = errors.New("command failed")

// app bundles what a command needs once the options are parsed.
type app struct {
	cfg         *config
	sender      *wallet.Sender
	broadcaster chain.Broadcaster
	retryDelay  time.Duration
}

// newApp creates the Esplora backend and the sender from the options.
func newApp(cfg *config) (*app, error) {
	walletCfg, err := cfg.walletConfig()
	if err != nil {
		return nil, err
	}

	backend := chain.NewEsploraClient(cfg.esploraConfig(walletCfg.Network))

	sender, err := wallet.NewSender(backend, walletCfg)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:         cfg,
		sender:      sender,
		broadcaster: backend,
		retryDelay:  defaultRetryDelay,
	}, nil
}

// report prints the outcome of a workflow. A transaction that was signed but
// not published is rebroadcast up to the configured number of times.
func (a *app) report(ctx context.Context, res wallet.Result) error {
	if res.Success {
		fmt.Println(res.Result)

		return nil
	}

	canRetry := wallet.Classify(res.Err) == wallet.KindBroadcast &&
		res.SignedTx != "" && a.cfg.BroadcastRetries > 0 &&
		!a.cfg.DryRun

	if canRetry {
		txid, err := a.rebroadcast(ctx, res.SignedTx)
		if err == nil {
			fmt.Println(txid)

			return nil
		}

		log.Errorf("Rebroadcast failed: %v", err)
	}

	if res.SignedTx != "" {
		fmt.Println(res.SignedTx)
	}

	return fmt.Errorf("%w: %s", errCommandFailed, res.Result)
}

// rebroadcast publishes the signed hex again, retrying on failure.
func (a *app) rebroadcast(ctx context.Context,
	txHex string) (chainhash.Hash, error) {

	var txid chainhash.Hash
	err := retry.Do(
		func() error {
			var err error
			txid, err = a.broadcaster.Broadcast(ctx, txHex)

			return err
		},
		retry.Attempts(a.cfg.BroadcastRetries),
		retry.Delay(a.retryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("Broadcast attempt %d failed: %v", n+1, err)
		}),
	)

	return txid, err
}

// sendCommand pays an amount from one address.
type sendCommand struct {
	ctx context.Context
	cfg *config

	From   string `long:"from" description:"Address to pay from, change returns to it" required:"true"`
	WIF    string `long:"wif" description:"WIF private key of the from address, prompted for when omitted"`
	To     string `long:"to" description:"Destination address" required:"true"`
	Amount int64  `long:"amount" description:"Amount to send in satoshis" required:"true"`
}

// Execute runs the send command.
func (c *sendCommand) Execute(_ []string) error {
	a, err := newApp(c.cfg)
	if err != nil {
		return err
	}

	wif := c.WIF
	if wif == "" {
		wif, err = readSecret(fmt.Sprintf("WIF for %s: ", c.From))
		if err != nil {
			return err
		}
	}

	res := a.sender.SendBtc(
		c.ctx, wallet.FundingSource{Address: c.From, WIF: wif}, c.To,
		btcutil.Amount(c.Amount),
	)

	return a.report(c.ctx, res)
}

// sweepCommand drains several addresses into one.
type sweepCommand struct {
	ctx context.Context
	cfg *config

	Sources []string `long:"source" description:"Address to drain as address[:wif], the WIF is prompted for when omitted. May be repeated" required:"true"`
	To      string   `long:"to" description:"Destination address" required:"true"`
}

// Execute runs the sweep command.
func (c *sweepCommand) Execute(_ []string) error {
	a, err := newApp(c.cfg)
	if err != nil {
		return err
	}

	sources := make([]wallet.FundingSource, 0, len(c.Sources))
	for _, arg := range c.Sources {
		src, err := parseSource(arg)
		if err != nil {
			return err
		}

		if src.WIF == "" {
			src.WIF, err = readSecret(
				fmt.Sprintf("WIF for %s: ", src.Address),
			)
			if err != nil {
				return err
			}
		}

		sources = append(sources, src)
	}

	res := a.sender.TransferBtc(c.ctx, sources, c.To)

	return a.report(c.ctx, res)
}

// parseSource splits an address[:wif] argument.
func parseSource(arg string) (wallet.FundingSource, error) {
	addr, wif, _ := strings.Cut(strings.TrimSpace(arg), ":")
	if addr == "" {
		return wallet.FundingSource{}, fmt.Errorf("%w: empty source "+
			"address in %q", errMissingArg, arg)
	}

	return wallet.FundingSource{Address: addr, WIF: wif}, nil
}
