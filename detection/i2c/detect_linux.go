//go:build linux

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

package i2c

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sys/unix"
)

const (
	// ioctlSlave sets the slave address of an i2c-dev file
	ioctlSlave = 0x0703
	// ioctlFuncs reads the adapter functionality mask
	ioctlFuncs = 0x0705
	// funcI2C indicates plain I2C transfers are supported
	funcI2C = 0x00000001
)

type linuxProber struct{}

func platformProber() prober {
	return linuxProber{}
}

// buses returns the i2c-dev nodes whose adapter supports plain I2C.
func (linuxProber) buses() ([]string, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C buses: %w", err)
	}
	sort.Strings(matches)

	buses := make([]string, 0, len(matches))
	for _, path := range matches {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		funcs, err := unix.IoctlGetUint32(fd, ioctlFuncs)
		_ = unix.Close(fd)
		if err != nil || funcs&funcI2C == 0 {
			continue
		}
		buses = append(buses, path)
	}
	return buses, nil
}

func openSlave(bus string, addr uint8) (int, error) {
	fd, err := unix.Open(bus, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.IoctlSetInt(fd, ioctlSlave, int(addr)); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// readCC sets the byte address to 0 and reads four bytes back.
func (linuxProber) readCC(ctx context.Context, bus string, addr uint8) ([]byte, error) {
	fd, err := openSlave(bus, addr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = unix.Close(fd) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := unix.Write(fd, []byte{0x00, 0x00})
	if err == nil && n != 2 {
		err = io.ErrShortWrite
	}
	if err != nil {
		return nil, fmt.Errorf("address write on %s failed: %w", bus, err)
	}
	buf := make([]byte, 4)
	n, err = unix.Read(fd, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// present reports whether addr acknowledges a one byte read.
func (linuxProber) present(bus string, addr uint8) bool {
	fd, err := openSlave(bus, addr)
	if err != nil {
		return false
	}
	defer func() { _ = unix.Close(fd) }()
	_, err = unix.Read(fd, make([]byte, 1))
	return err == nil
}
