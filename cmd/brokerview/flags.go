// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/brokerview/lib/config"
	"github.com/bureau-foundation/brokerview/lib/engine"
)

// commandFlags holds parsed command-line flags. Empty values leave the
// configuration file's setting alone.
type commandFlags struct {
	brokers    []string
	group      string
	configPath string
	start      string
	logOutput  string
	noColor    bool
	version    bool
	help       bool
}

func parseFlags(args []string, output io.Writer) (commandFlags, error) {
	var flags commandFlags
	flagSet := pflag.NewFlagSet("brokerview", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.StringSliceVarP(&flags.brokers, "brokers", "b", nil, "bootstrap brokers, host:port, comma-separated (default localhost:9092)")
	flagSet.StringVarP(&flags.group, "group", "g", "", "consumer group whose committed offsets the committed start position uses")
	flagSet.StringVarP(&flags.configPath, "config", "c", "", "path to a YAML or JSONC config file (default $"+config.EnvVar+")")
	flagSet.StringVar(&flags.start, "start", "", "where opened topics start: tail, earliest, committed, offset:N or lookback:N")
	flagSet.StringVar(&flags.logOutput, "log-output", "", "write JSON log records to this file (in addition to the status bar)")
	flagSet.BoolVar(&flags.noColor, "no-color", false, "disable colors")
	flagSet.BoolVar(&flags.version, "version", false, "print version information and exit")
	flagSet.BoolVarP(&flags.help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet, output)
			return commandFlags{help: true}, nil
		}
		return commandFlags{}, usage("%w", err).WithHint("Run 'brokerview --help' for the list of flags.")
	}
	if flags.help {
		printHelp(flagSet, output)
		return flags, nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return commandFlags{}, usage("unexpected argument: %s", rest[0]).
			WithHint("Brokers are given with --brokers, not as arguments.")
	}
	if flags.start != "" {
		if _, err := engine.ParseStartPosition(flags.start); err != nil {
			return commandFlags{}, usage("--start: %w", err)
		}
	}
	return flags, nil
}

// resolveConfig loads the file named by --config, else the one named
// by the environment, else the defaults, then applies flags over it.
func resolveConfig(flags commandFlags, getenv func(string) string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case flags.configPath != "":
		cfg, err = config.LoadFile(flags.configPath)
	case getenv(config.EnvVar) != "":
		cfg, err = config.LoadFile(getenv(config.EnvVar))
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, usage("loading config: %w", err).
			WithHint("Check the path given by --config or $" + config.EnvVar + ".")
	}

	if len(flags.brokers) > 0 {
		cfg.Cluster.Brokers = flags.brokers
	}
	if flags.group != "" {
		cfg.Cluster.Group = flags.group
	}
	if flags.start != "" {
		cfg.Consumer.Start = flags.start
	}
	if flags.noColor {
		cfg.UI.Color = "never"
	}
	return cfg, nil
}

func printHelp(flagSet *pflag.FlagSet, output io.Writer) {
	fmt.Fprintf(output, `brokerview: browse and publish to a Kafka-compatible cluster.

Usage:
  brokerview [flags]

Examples:
  # Connect to a local broker
  brokerview

  # Connect to a cluster and replay the last 100 records of each partition
  brokerview --brokers kafka-1:9092,kafka-2:9092 --start lookback:100

  # Use a config file and keep a debug log
  brokerview --config ~/.config/brokerview.yaml --log-output /tmp/brokerview.log

Keys:
  1 2 3      topics, groups, brokers      j/k g/G    move, first/last
  / Esc      filter topics, clear          Enter l    open topic
  o          open topic from a position    Tab        next page in a topic
  s          edit the send form            x          hex dump of a record
  r          refresh metadata              q          back, or quit

Flags:
`)
	flagSet.PrintDefaults()
}
