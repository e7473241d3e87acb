// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// brokerview is a terminal browser for Kafka-compatible clusters. It
// lists topics, consumer groups and brokers, streams records from one
// topic at a time, and publishes messages typed into a send form.
//
// The cluster is live: metadata refreshes in the background, dropped
// connections are retried with backoff, and the display repaints as
// records arrive.
//
// Configuration comes from a YAML file named by --config or
// BROKERVIEW_CONFIG. Without either, built-in defaults apply. Flags
// override the file.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bureau-foundation/brokerview/lib/brokerui"
	"github.com/bureau-foundation/brokerview/lib/engine"
	"github.com/bureau-foundation/brokerview/lib/kafka"
	"github.com/bureau-foundation/brokerview/lib/version"
)

// shutdownTimeout bounds how long exit waits for in-flight sends and
// stream tasks.
const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(exitCode(err))
	}
}

func run(args []string, stdout *os.File) error {
	flags, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if flags.help {
		return nil
	}
	if flags.version {
		fmt.Fprintln(stdout, version.Full())
		return nil
	}

	cfg, err := resolveConfig(flags, os.Getenv)
	if err != nil {
		return err
	}
	engineConfig, err := cfg.Engine()
	if err != nil {
		return usage("invalid configuration: %w", err).
			WithHint("Fix the config file or the flags named above.")
	}

	if !term.IsTerminal(int(stdout.Fd())) {
		return usage("standard output is not a terminal").
			WithHint("brokerview is interactive; run it in a terminal rather than piping its output.")
	}
	setColorProfile(cfg.UI.Color, stdout)

	// Records at warn and above show in the status bar; everything
	// goes to --log-output when set. Nothing may write to stderr while
	// the alternate screen is up.
	tuiHandler := brokerui.NewTUILogHandler(slog.LevelWarn)
	var handler slog.Handler = tuiHandler
	if flags.logOutput != "" {
		fileHandler, closeFile, err := openFileLogHandler(flags.logOutput)
		if err != nil {
			return usage("cannot open log file %s: %w", flags.logOutput, err)
		}
		defer closeFile()
		handler = fanoutHandler{tuiHandler, fileHandler}
	}
	logger := slog.New(handler)

	dialer, err := kafka.NewDialer(kafka.Options{
		ClientID:        cfg.Cluster.ClientID,
		Compression:     cfg.Cluster.Compression,
		DialTimeout:     cfg.Session.CallTimeout.Std(),
		DeliveryTimeout: cfg.Session.CallTimeout.Std(),
		Logger:          logger.With("component", "kafka"),
	})
	if err != nil {
		return usage("%w", err)
	}

	liveEngine := engine.New(engine.Options{
		Dialer: dialer,
		Config: engineConfig,
		Logger: logger,
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := liveEngine.Shutdown(ctx); err != nil {
			logger.Error("engine shutdown incomplete", "error", err)
		}
	}()

	if err := liveEngine.Submit(engine.Connect{Endpoints: cfg.Cluster.Brokers, Group: cfg.Cluster.Group}); err != nil {
		return err
	}

	model := brokerui.NewModel(liveEngine, brokerui.Options{MaxRedrawPerSecond: cfg.UI.MaxRedrawPerSecond})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(stdout))

	// Records logged before this point are dropped; the screen is not
	// up yet.
	tuiHandler.SetProgram(program)

	_, err = program.Run()
	return err
}

// setColorProfile applies the ui.color setting. "auto" leaves lipgloss
// to detect the terminal, which already honors NO_COLOR.
func setColorProfile(mode string, output io.Writer) {
	switch mode {
	case "never":
		lipgloss.SetColorProfile(termenv.Ascii)
	case "always":
		profile := termenv.NewOutput(output).EnvColorProfile()
		if profile == termenv.Ascii {
			profile = termenv.ANSI256
		}
		lipgloss.SetColorProfile(profile)
	}
}
