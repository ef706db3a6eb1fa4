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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-busside"
	"github.com/ZaparooProject/go-busside/detection"
	_ "github.com/ZaparooProject/go-busside/detection/uart"
	"github.com/ZaparooProject/go-busside/logger"
	"github.com/ZaparooProject/go-busside/metrics"
	"github.com/ZaparooProject/go-busside/passthrough"
)

// passthroughReadTimeout keeps the bridge responsive to Ctrl-C
const passthroughReadTimeout = 100 * time.Millisecond

// openTransport overrides how ports are opened; nil uses the UART transport
var openTransport busside.TransportFactory

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, rest, err := parseArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, errUsage) {
			_, _ = fmt.Fprintln(stderr, err)
		}
		return 2
	}

	log := logger.NewSlog(logger.Options{
		Output: stderr,
		Format: logger.FormatConsole,
		Level:  logger.ParseLevel(cfg.LogLevel),
	})
	logger.SetDefault(log)

	if err := dispatch(ctx, cfg, rest, log, stdin, stdout); err != nil {
		log.Error("command failed", "command", rest[0], "error", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, cfg settings, args []string, log logger.Logger, stdin io.Reader, stdout io.Writer) error {
	cmd, params := args[0], args[1:]

	if cmd == "detect" {
		return runDetect(ctx, cfg, log, stdout)
	}

	var (
		command uint32
		words   []uint32
		err     error
	)
	switch cmd {
	case "echo":
		words, err = parseWords(params)
	case "send":
		if len(params) == 0 {
			return errors.New("send: missing command id")
		}
		all, perr := parseWords(params)
		if perr != nil {
			return perr
		}
		command, words = all[0], all[1:]
	case "led":
		words, err = parseWords(params)
		if err == nil && len(words) != 1 {
			err = errors.New("led: expected <interval-ms>")
		}
	case "passthrough":
		words, err = parseWords(params)
		if err == nil && len(words) != 3 {
			err = errors.New("passthrough: expected <rx> <tx> <baud>")
		}
		if err == nil {
			words[0], words[1], err = uartPins(words[0], words[1])
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}

	session, shutdown, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer shutdown()

	switch cmd {
	case "echo":
		reply, err := session.Echo(ctx, words...)
		if err != nil {
			return err
		}
		printReply(stdout, reply)
	case "send":
		reply, err := session.SendContext(ctx, command, words)
		if err != nil {
			return err
		}
		printReply(stdout, reply)
	case "led":
		return session.SetLEDBlink(ctx, words[0])
	case "passthrough":
		return runPassthrough(ctx, session, words, stdin, stdout, log)
	}
	return nil
}

func connect(ctx context.Context, cfg settings, log logger.Logger) (*busside.Session, func(), error) {
	device := cfg.Device
	if device == "" {
		path, err := detection.FirstPath(ctx, detectOptions(cfg, log))
		if err != nil {
			return nil, nil, fmt.Errorf("auto-detect: %w", err)
		}
		log.Info("auto-detected device", "port", path)
		device = path
	}

	m := busside.NewConnectionMetrics()
	session, _, err := busside.Connect(ctx, device, cfg.options(log, m)...)
	if err != nil {
		return nil, nil, err
	}

	stopMetrics := func() {}
	if cfg.MetricsAddr != "" {
		stopMetrics, err = serveMetrics(cfg.MetricsAddr, session, log)
		if err != nil {
			_ = session.Close()
			return nil, nil, err
		}
	}

	return session, func() {
		stopMetrics()
		if err := session.Close(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}, nil
}

func serveMetrics(addr string, session *busside.Session, log logger.Logger) (func(), error) {
	reg := metrics.NewRegistry()
	if _, err := metrics.Register(reg, session); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// detectOptions enables safe-mode probing when requested. Probing opens
// each candidate and waits for the boot settle, so the overall detection
// timeout is lifted.
func detectOptions(cfg settings, log logger.Logger) *detection.Options {
	opts := detection.DefaultOptions()
	if cfg.Probe {
		opts.Mode = detection.Safe
		opts.Probe = probeFunc(cfg, log)
		opts.Timeout = 0
	}
	return &opts
}

// probeFunc confirms a candidate port with a single echo handshake
func probeFunc(cfg settings, log logger.Logger) detection.ProbeFunc {
	return func(ctx context.Context, path string) bool {
		opts := append(cfg.options(log, busside.NewConnectionMetrics()), busside.WithConnectAttempts(1))
		session, _, err := busside.Connect(ctx, path, opts...)
		if err != nil {
			log.Debug("probe failed", "port", path, "error", err)
			return false
		}
		if err := session.Close(); err != nil {
			log.Debug("closing probe failed", "port", path, "error", err)
		}
		return true
	}
}

func runDetect(ctx context.Context, cfg settings, log logger.Logger, out io.Writer) error {
	devices, err := detection.DetectAll(ctx, detectOptions(cfg, log))
	if err != nil {
		return err
	}
	for _, d := range devices {
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", d.Path, d.Name, d.Confidence)
	}
	return nil
}

func runPassthrough(
	ctx context.Context, session *busside.Session, words []uint32,
	stdin io.Reader, stdout io.Writer, log logger.Logger,
) error {
	p, err := session.StartUARTPassthrough(ctx, words[0], words[1], words[2])
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn("leaving passthrough failed", "error", err)
		}
	}()
	if err := p.SetTimeout(passthroughReadTimeout); err != nil {
		return err
	}

	log.Info("passthrough active, interrupt to exit")
	reason, err := passthrough.Bridge(ctx, p, stdin, stdout, []byte(passthrough.DefaultSentinel))
	log.Info("passthrough ended", "reason", reason)
	return err
}

// uartPins converts the 1-based D1..Dn pin labels used on the command line
// into controller pin indices. A tx of 0 or out of range means no tx pin.
func uartPins(rx, tx uint32) (rxIdx, txIdx uint32, err error) {
	if rx == 0 || rx-1 > busside.MaxUARTPin {
		return 0, 0, fmt.Errorf("passthrough: rx pin must be between 1 and %d, got %d", busside.MaxUARTPin+1, rx)
	}
	txIdx = busside.UARTNoPin
	if tx != 0 && tx-1 <= busside.MaxUARTPin {
		txIdx = tx - 1
	}
	return rx - 1, txIdx, nil
}

// parseWords parses decimal or 0x-prefixed 32-bit numbers
func parseWords(params []string) ([]uint32, error) {
	words := make([]uint32, 0, len(params))
	for _, p := range params {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p, err)
		}
		words = append(words, uint32(v))
	}
	return words, nil
}

func printReply(out io.Writer, reply *busside.Reply) {
	hex := make([]string, len(reply.Args))
	for i, a := range reply.Args {
		hex[i] = fmt.Sprintf("0x%08X", a)
	}
	_, _ = fmt.Fprintf(out, "len=%d args=[%s]\n", reply.Length, strings.Join(hex, " "))
}
