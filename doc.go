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

/*
Package smartag provides a pure Go library for reading and configuring
SmarTag sensor data loggers.

A SmarTag is an ST25DV dynamic NFC tag wired to a sensor board. The board
logs temperature, humidity, pressure and acceleration samples into the tag
EEPROM, which a reader accesses over RF or over the wired I2C interface.
The memory is organized in 4 byte cells: an NDEF message whose SmarTag
record holds a fixed block of configuration, status and extreme cells,
followed by a ring buffer of samples.

Features:
  - Multiple transport support: UART RF bridge, I2C, PC/SC readers
  - Layout discovery from the capability container and NDEF message
  - Sampling configuration with ordered, resumable write plans
  - Sample log, extremes and single-shot acquisitions
  - Retry logic with configurable backoff and write verification
  - Comprehensive error handling

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-smartag"
	    "github.com/ZaparooProject/go-smartag/transport/uart"
	)

	// Create a UART transport
	transport := uart.New("/dev/ttyACM0")
	defer transport.Close()

	// Create the tag engine with custom options
	tag, err := smartag.New(transport,
	    smartag.WithMaxRetries(5),
	    smartag.WithLocation(time.UTC),
	)
	if err != nil {
	    log.Fatal(err)
	}

	samples, err := tag.ReadSamples(ctx)
	if err != nil {
	    log.Fatal(err)
	}
	for _, s := range samples {
	    fmt.Println(s.SampleDate())
	}

Transport Selection:

  - UART: serial RF bridge boards with an ISO 15693 front end
  - I2C: the ST25DV wired interface, for boards sharing the bus
  - PC/SC: desktop contactless readers

Configuration Writes:

WriteConfiguration writes one cell at a time following
ConfigurationWritePlan. A failure after the first cell returns a
*PartialWriteError whose StateUnknown reports that the tag holds a mix of
old and new cells:

	var partial *smartag.PartialWriteError
	if errors.As(err, &partial) && partial.StateUnknown() {
	    // write the configuration again
	}

Thread Safety:

A Tag serializes its own operations. The session package adds per caller
bookkeeping such as the single-shot guard.
*/
package smartag
