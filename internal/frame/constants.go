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

// Package frame implements the checksummed frame envelope spoken by serial
// reader bridges.
package frame

// Frame direction identifiers (TFI).
const (
	HostToReader = 0xD4
	ReaderToHost = 0xD5
)

// Frame markers
const (
	Preamble   = 0x00
	StartCode1 = 0x00
	StartCode2 = 0xFF
	Postamble  = 0x00
)

// Frame size limits
const (
	MaxFrameDataLength = 254 // TFI plus data must fit the length byte
	MinFrameLength     = 6   // start code, LEN, LCS, TFI, DCS
)

// Bridge commands, first data byte of a host frame. Responses echo the
// command plus one, followed by a status byte.
const (
	CmdSelectTag   = 0x01
	CmdReleaseTag  = 0x02
	CmdTransceive  = 0x10
	StatusOK       = 0x00
	StatusNoTag    = 0x01
	StatusTimeout  = 0x02
	StatusRFError  = 0x03
	responseOffset = 1
)

// ResponseCommand returns the command code a response to cmd carries.
func ResponseCommand(cmd byte) byte {
	return cmd + responseOffset
}

// ACK and NACK frames
var (
	AckFrame  = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	NackFrame = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)
