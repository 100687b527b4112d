// Command btcsend pays from or drains Bitcoin addresses controlled by WIF
// keys, using an Esplora REST API for chain data and broadcast.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			return
		}

		os.Exit(1)
	}
}

// run parses the config file and the command line and executes the selected
// command.
func run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := defaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file was specified.
	preCfg := cfg
	preParser := flags.NewParser(
		&preCfg, flags.PassDoubleDash|flags.IgnoreUnknown,
	)
	if _, err := preParser.ParseArgs(args); err != nil {
		return err
	}

	parser := flags.NewParser(&cfg, flags.Default)

	_, err := parser.AddCommand(
		"send", "Pay an amount from one address",
		"Pay an amount from one address to another. Confirmed coins "+
			"are spent smallest first and change returns to the "+
			"from address.",
		&sendCommand{ctx: ctx, cfg: &cfg},
	)
	if err != nil {
		return err
	}

	_, err = parser.AddCommand(
		"sweep", "Drain addresses into one output",
		"Spend every confirmed coin of the sources into a single "+
			"output to the destination, minus the fee.",
		&sweepCommand{ctx: ctx, cfg: &cfg},
	)
	if err != nil {
		return err
	}

	// Load the config file first so the command line overrides it.
	if err := loadConfigFile(parser, preCfg.ConfigFile); err != nil {
		log.Errorf("Unable to load config file %s: %v",
			preCfg.ConfigFile, err)

		return err
	}

	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}

		if err := setLogLevels(cfg.DebugLevel); err != nil {
			return err
		}

		if cfg.LogDir != "" {
			logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
			if err := initLogRotator(logFile); err != nil {
				return err
			}
			defer closeLogRotator()
		}

		return cmd.Execute(args)
	}

	_, err = parser.ParseArgs(args)

	return err
}
