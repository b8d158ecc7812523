// go-smartag
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-smartag.
//
// go-smartag is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-smartag is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-smartag; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Command smartag reads and configures SmarTag sensor tags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/internal/logging"
	"github.com/sirupsen/logrus"
)

// errUsage is returned for bad command lines; usage has been printed.
var errUsage = errors.New("usage")

type command struct {
	run     func(ctx context.Context, a *app, args []string) error
	summary string
}

var commands = map[string]command{
	"detect":       {run: runDetect, summary: "list readers able to reach a tag"},
	"info":         {run: runInfo, summary: "print firmware version, status and layout"},
	"config":       {run: runConfig, summary: "print the sampling configuration"},
	"write-config": {run: runWriteConfig, summary: "write the sampling configuration"},
	"extremes":     {run: runExtremes, summary: "print the extreme values"},
	"samples":      {run: runSamples, summary: "print the sample log"},
	"single-shot":  {run: runSingleShot, summary: "request and print an on-demand sample"},
	"export":       {run: runExport, summary: "export a full read as CSV or JSON"},
	"publish":      {run: runPublish, summary: "publish samples and extremes over MQTT"},
	"simulate":     {run: runSimulate, summary: "run against an emulated tag"},
}

// app is the state shared by the subcommands.
type app struct {
	stdout io.Writer
	cfg    *Config
	log    *logrus.Entry
	out    *Output
	loc    *time.Location
	// open connects the tag selected by the global flags.
	open    func(ctx context.Context) (*smartag.Tag, func(), error)
	timeout time.Duration
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func usage(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(w, "Usage: smartag [flags] <command> [command flags]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-13s %s\n", name, commands[name].summary)
	}
	_, _ = fmt.Fprintf(w, "\nFlags:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("smartag", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "YAML configuration file")
	device := fs.String("device", "", "Device path, I2C bus or PC/SC reader. Empty for auto-detection.")
	transport := fs.String("transport", "", "Transport type: uart, i2c, pcsc or auto")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	debug := fs.Bool("debug", false, "Enable protocol debug output")
	timeout := fs.Duration("timeout", 30*time.Second, "Timeout for one command, 0 for none")
	tz := fs.String("tz", "", "Time zone of the tag clock (default: local)")

	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		usage(stderr, fs)
		return 2
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(stderr, fs)
		return 2
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	if *device != "" {
		cfg.Transport.Device = *device
	}
	if *transport != "" {
		cfg.Transport.Type = *transport
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *tz != "" {
		cfg.Timezone = *tz
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	loc, _ := cfg.Location()

	log := logging.NewLogrus(cfg.Log.Level, stderr).Get("smartag")
	smartag.SetLogger(log)
	if *debug {
		smartag.SetDebugEnabled(true)
	}

	a := &app{
		stdout:  stdout,
		cfg:     cfg,
		log:     log,
		out:     NewOutput(stdout),
		loc:     loc,
		timeout: *timeout,
	}
	a.open = a.openTag

	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		log.WithError(err).Errorf("%s failed", name)
		return 1
	}
	return 0
}

// bounded applies the -timeout flag to a one-off operation.
func (a *app) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// flags creates the flag set of a subcommand.
func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stdout)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}
