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

/*
Package busside is a pure Go client for the BUSSide hardware hacking
controller.

The controller sits behind a USB serial bridge and speaks a small
request/reply protocol: every frame starts with the sync marker 0xFE 0xCA,
carries a command id, a payload length, a sequence number and a CRC-32,
followed by the payload as little-endian 32-bit words. The link is noisy
on connect and may drop or corrupt bytes, so every command is retried with
a fresh sequence number and the link is reopened when retries keep
failing.

Features:
  - Sync marker hunting that survives boot noise
  - CRC-32 framed requests with sequence correlation
  - Retry and reconnect policy with typed per-attempt failures
  - Sequence numbers persisted across runs
  - Raw UART passthrough with exclusive link ownership
  - Serial port detection and Prometheus metrics

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-busside"
	)

	// Open the port and perform the echo handshake
	session, _, err := busside.Connect(ctx, "/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}
	defer session.Close()

	// Send a command with argument words
	reply, err := session.Send(busside.CmdEcho, 0x12345678)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("%d bytes: %v\n", reply.Length, reply.Args)

	// Or tune the retry policy
	session, _, err = busside.Connect(ctx, "/dev/ttyUSB0",
	    busside.WithTimeout(time.Second),
	    busside.WithMaxAttempts(5),
	)

Error Handling:

A command that fails every attempt returns an *ExhaustedError. It matches
ErrRetriesExhausted and every attempt's cause:

	if errors.Is(err, busside.ErrCRCMismatch) {
	    // at least one reply was corrupted
	}

Thread Safety:

Session operations are not thread-safe. The protocol allows one
outstanding request, so serialize access in your application.
*/
package busside
