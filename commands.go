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

package busside

// Controller command ids
const (
	CmdEcho            uint32 = 0
	CmdUARTPassthrough uint32 = 19
	CmdLEDBlink        uint32 = 45
)

// UARTNoPin marks an unused pin in a UART passthrough request
const UARTNoPin uint32 = 255

// MaxUARTPin is the highest pin index the controller accepts
const MaxUARTPin uint32 = 250
