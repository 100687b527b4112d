package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/disco-quotidie/send-btc-simplified/wallet"
	flags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
)

// TestParseSource checks the address[:wif] argument format.
func TestParseSource(t *testing.T) {
	t.Parallel()

	src, err := parseSource("tb1qaddr:cWif")
	require.NoError(t, err)
	require.Equal(t, "tb1qaddr", src.Address)
	require.Equal(t, "cWif", src.WIF)

	src, err = parseSource(" tb1qaddr ")
	require.NoError(t, err)
	require.Equal(t, "tb1qaddr", src.Address)
	require.Empty(t, src.WIF)

	_, err = parseSource(":cWif")
	require.ErrorIs(t, err, errMissingArg)
}

// TestWalletConfig checks the conversion of the options.
func TestWalletConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Network = "mainnet"
	cfg.FeeTier = "economy"
	cfg.FeeRateMultiplier = 1.25
	cfg.DryRun = true

	walletCfg, err := cfg.walletConfig()
	require.NoError(t, err)
	require.Equal(t, address.Mainnet, walletCfg.Network)
	require.Equal(t, chain.FeeTierEconomy, walletCfg.FeeTier)
	require.Equal(t, 1.25, walletCfg.FeeRateMultiplier)
	require.True(t, walletCfg.MaxFeeRate.Equal(wallet.DefaultMaxFeeRate))
	require.True(t, walletCfg.DryRun)

	bad := defaultConfig()
	bad.Network = "regtest"
	_, err = bad.walletConfig()
	require.ErrorIs(t, err, address.ErrUnknownNetwork)

	bad = defaultConfig()
	bad.FeeRateMultiplier = 0
	_, err = bad.walletConfig()
	require.ErrorIs(t, err, wallet.ErrInvalidConfig)

	bad = defaultConfig()
	bad.FeeRateMultiplier = -1.5
	_, err = bad.walletConfig()
	require.ErrorIs(t, err, wallet.ErrInvalidConfig)

	bad = defaultConfig()
	bad.MaxFeeRate = 0
	_, err = bad.walletConfig()
	require.ErrorIs(t, err, wallet.ErrInvalidConfig)
}

// TestLoadConfigFile checks that the INI file fills the options.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "btcsend.conf")
	content := "[Application Options]\n" +
		"network=mainnet\n" +
		"feetier=hour\n" +
		"broadcastretries=5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.None)
	require.NoError(t, loadConfigFile(parser, path))

	require.Equal(t, "mainnet", cfg.Network)
	require.Equal(t, "hour", cfg.FeeTier)
	require.Equal(t, uint(5), cfg.BroadcastRetries)

	missing := filepath.Join(t.TempDir(), "missing.conf")
	require.Error(t, loadConfigFile(parser, missing))
}

// TestReportRebroadcast checks that a signed transaction whose broadcast
// failed is published again.
func TestReportRebroadcast(t *testing.T) {
	t.Parallel()

	// Arrange: a backend failing the first broadcast only.
	txid := chainhash.Hash{7}

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)

			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)

				return
			}

			_, _ = w.Write([]byte(txid.String()))
		},
	))
	t.Cleanup(server.Close)

	cfg := defaultConfig()
	cfg.BroadcastRetries = 3

	a := &app{
		cfg: &cfg,
		broadcaster: chain.NewEsploraClient(chain.EsploraConfig{
			Network: address.Testnet,
			BaseURL: server.URL,
		}),
		retryDelay: time.Millisecond,
	}

	res := wallet.Result{
		Result:   "broadcast failed",
		SignedTx: "0200",
		Err:      wallet.ErrBroadcastFailed,
	}

	// Act.
	err := a.report(context.Background(), res)

	// Assert.
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
}

// TestReportFailure checks that other failures are not retried.
func TestReportFailure(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	a := &app{cfg: &cfg}

	res := wallet.Result{
		Result: "insufficient balance",
		Err:    wallet.ErrInsufficientBalance,
	}

	err := a.report(context.Background(), res)
	require.ErrorIs(t, err, errCommandFailed)
	require.ErrorContains(t, err, "insufficient balance")
}
