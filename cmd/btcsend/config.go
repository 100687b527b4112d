package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
	"github.com/disco-quotidie/send-btc-simplified/wallet"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename   = "btcsend.conf"
	defaultLogFilename      = "btcsend.log"
	defaultNetwork          = "testnet"
	defaultFeeTier          = "fastest"
	defaultDebugLevel       = "info"
	defaultBroadcastRetries = 3
	defaultRetryDelay       = 2 * time.Second
)

var (
	defaultAppDataDir = btcutil.AppDataDir("btcsend", false)

	// errMissingArg is returned when a required value is neither given on
	// the command line nor in the config file.
	errMissingArg = errors.New("missing argument")
)

// config defines the options shared by every command. Values are read from
// the config file first and then overridden by the command line.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`

	Network           string        `long:"network" description:"Network to use {mainnet, testnet}"`
	EsploraURL        string        `long:"esploraurl" description:"Base URL of the Esplora REST API, defaults to mempool.space for the network"`
	Timeout           time.Duration `long:"timeout" description:"Timeout of each request to the Esplora API"`
	FeeTier           string        `long:"feetier" description:"Recommended fee rate to use {fastest, halfhour, hour, economy, minimum}"`
	FeeRateMultiplier float64       `long:"feeratemultiplier" description:"Factor applied to the recommended fee rate"`
	MaxFeeRate        int64         `long:"maxfeerate" description:"Highest fee rate in sat/vb the transaction may pay"`
	DryRun            bool          `long:"dryrun" description:"Sign the transaction and print it without broadcasting"`
	BroadcastRetries  uint          `long:"broadcastretries" description:"Number of times a rejected broadcast of the signed transaction is retried"`
	DebugLevel        string        `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical, off}"`
	LogDir            string        `long:"logdir" description:"Directory to also write a rotated log file to"`
}

// defaultConfig returns the config used when no option is set.
func defaultConfig() config {
	return config{
		ConfigFile:        defaultConfigFile(),
		Network:           defaultNetwork,
		Timeout:           chain.DefaultTimeout,
		FeeTier:           defaultFeeTier,
		FeeRateMultiplier: 1,
		MaxFeeRate:        1000,
		BroadcastRetries:  defaultBroadcastRetries,
		DebugLevel:        defaultDebugLevel,
	}
}

// defaultConfigFile returns the path of the config file in the app data
// directory.
func defaultConfigFile() string {
	return filepath.Join(defaultAppDataDir, defaultConfigFilename)
}

// loadConfigFile reads the INI config file into the parser's options. A
// missing default config file is not an error.
func loadConfigFile(parser *flags.Parser, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && path == defaultConfigFile() {
			return nil
		}

		return err
	}

	return flags.NewIniParser(parser).ParseFile(path)
}

// walletConfig converts the options into a wallet.Config.
func (c *config) walletConfig() (wallet.Config, error) {
	net, err := address.ParseNetwork(c.Network)
	if err != nil {
		return wallet.Config{}, err
	}

	tier, err := chain.ParseFeeTier(c.FeeTier)
	if err != nil {
		return wallet.Config{}, err
	}

	// The library treats a zero multiplier as unset. On the command line
	// it is an explicit value, so anything but a positive factor is an
	// error.
	if !(c.FeeRateMultiplier > 0) {
		return wallet.Config{}, fmt.Errorf("%w: feeratemultiplier "+
			"must be positive", wallet.ErrInvalidConfig)
	}

	if c.MaxFeeRate <= 0 {
		return wallet.Config{}, fmt.Errorf("%w: maxfeerate must be "+
			"positive", wallet.ErrInvalidConfig)
	}

	cfg := wallet.Config{
		Network:           net,
		FeeTier:           tier,
		FeeRateMultiplier: c.FeeRateMultiplier,
		MaxFeeRate: btcunit.NewSatPerVByte(
			btcutil.Amount(c.MaxFeeRate),
		),
		DryRun: c.DryRun,
	}

	if err := cfg.Validate(); err != nil {
		return wallet.Config{}, err
	}

	return cfg, nil
}

// esploraConfig returns the config of the Esplora client.
func (c *config) esploraConfig(net address.Network) chain.EsploraConfig {
	return chain.EsploraConfig{
		Network: net,
		BaseURL: c.EsploraURL,
		Timeout: c.Timeout,
	}
}
