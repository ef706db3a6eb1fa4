// go-busside
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-busside.
//
// go-busside is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-busside is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-busside; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ZaparooProject/go-busside"
	"github.com/ZaparooProject/go-busside/logger"
)

type settings struct {
	Device          string
	SequenceFile    string
	MetricsAddr     string
	LogLevel        string
	Timeout         time.Duration
	BootSettle      time.Duration
	ReconnectDelay  time.Duration
	Attempts        int
	ConnectAttempts int
	ReconnectAfter  int
	Probe           bool
}

func defaultSettings() settings {
	def := busside.DefaultConfig()
	return settings{
		LogLevel:        "info",
		Timeout:         def.Timeout,
		BootSettle:      def.BootSettle,
		ReconnectDelay:  def.ReconnectDelay,
		Attempts:        def.MaxAttempts,
		ConnectAttempts: def.ConnectAttempts,
		ReconnectAfter:  def.ReconnectAfter,
	}
}

type fileConfig struct {
	Device          string `toml:"device"`
	SequenceFile    string `toml:"sequence_file"`
	MetricsAddr     string `toml:"metrics_addr"`
	LogLevel        string `toml:"log_level"`
	Timeout         string `toml:"timeout"`
	BootSettle      string `toml:"boot_settle"`
	ReconnectDelay  string `toml:"reconnect_delay"`
	Attempts        int    `toml:"attempts"`
	ConnectAttempts int    `toml:"connect_attempts"`
	ReconnectAfter  int    `toml:"reconnect_after"`
	Probe           bool   `toml:"probe"`
}

// loadConfigFile overlays the keys present in the TOML file at path onto base
func loadConfigFile(path string, base settings) (settings, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return settings{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	cfg := base
	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("sequence_file") {
		cfg.SequenceFile = strings.TrimSpace(raw.SequenceFile)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}

	durations := []struct {
		dst *time.Duration
		key string
		raw string
	}{
		{dst: &cfg.Timeout, key: "timeout", raw: raw.Timeout},
		{dst: &cfg.BootSettle, key: "boot_settle", raw: raw.BootSettle},
		{dst: &cfg.ReconnectDelay, key: "reconnect_delay", raw: raw.ReconnectDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return settings{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if meta.IsDefined("attempts") {
		cfg.Attempts = raw.Attempts
	}
	if meta.IsDefined("connect_attempts") {
		cfg.ConnectAttempts = raw.ConnectAttempts
	}
	if meta.IsDefined("reconnect_after") {
		cfg.ReconnectAfter = raw.ReconnectAfter
	}
	if meta.IsDefined("probe") {
		cfg.Probe = raw.Probe
	}
	return cfg, nil
}

var errUsage = errors.New("usage")

// parseArgs resolves settings from defaults, then the config file, then the
// flags given on the command line. It returns the remaining arguments.
func parseArgs(args []string, stderr io.Writer) (settings, []string, error) {
	def := defaultSettings()

	fs := flag.NewFlagSet("busside", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "usage: busside [flags] <detect|echo|send|led|passthrough> [args]\n\n")
		_, _ = fmt.Fprintf(stderr, "  passthrough <rx> <tx> <baud>  pins are board labels D1..D%d, tx 0 for none\n\n",
			busside.MaxUARTPin+1)
		fs.PrintDefaults()
	}

	device := fs.String("device", def.Device, "Serial device path. Leave empty for auto-detection.")
	timeout := fs.Duration("timeout", def.Timeout, "Per-read timeout")
	attempts := fs.Int("attempts", def.Attempts, "Attempts per command")
	configPath := fs.String("config", "", "Optional TOML config file")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", def.MetricsAddr, "Serve Prometheus metrics on this address")
	seqFile := fs.String("seq-file", def.SequenceFile, "Sequence number file (default: temp dir)")
	probe := fs.Bool("probe", false, "Confirm detected ports with an echo handshake")

	if err := fs.Parse(args); err != nil {
		return settings{}, nil, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := loadConfigFile(*configPath, def)
		if err != nil {
			return settings{}, nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device = *device
		case "timeout":
			cfg.Timeout = *timeout
		case "attempts":
			cfg.Attempts = *attempts
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "seq-file":
			cfg.SequenceFile = *seqFile
		case "probe":
			cfg.Probe = *probe
		case "debug":
			if *debug {
				cfg.LogLevel = "debug"
			}
		}
	})

	if fs.NArg() == 0 {
		fs.Usage()
		return settings{}, nil, errUsage
	}
	return cfg, fs.Args(), nil
}

func (s settings) options(l logger.Logger, m *busside.ConnectionMetrics) []busside.Option {
	opts := []busside.Option{
		busside.WithLogger(l),
		busside.WithMetrics(m),
		busside.WithSequenceStore(busside.NewFileStore(s.SequenceFile)),
		busside.WithTimeout(s.Timeout),
		busside.WithBootSettle(s.BootSettle),
		busside.WithReconnectDelay(s.ReconnectDelay),
		busside.WithMaxAttempts(s.Attempts),
		busside.WithConnectAttempts(s.ConnectAttempts),
		busside.WithReconnectAfter(s.ReconnectAfter),
	}
	if openTransport != nil {
		opts = append(opts, busside.WithTransportFactory(openTransport))
	}
	return opts
}
