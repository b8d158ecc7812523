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

package smartag

import (
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var pkgLogger atomic.Pointer[logrus.Entry]

func init() {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.InfoLevel)
	pkgLogger.Store(logrus.NewEntry(l).WithField("component", "smartag"))
}

// SetLogger routes library logging to entry.
func SetLogger(entry *logrus.Entry) {
	if entry == nil {
		return
	}
	pkgLogger.Store(entry.WithField("component", "smartag"))
}

// Logger returns the library logger.
func Logger() *logrus.Entry {
	return pkgLogger.Load()
}

// SetDebugEnabled turns debug output of the library logger on or off. When
// no logger was installed with SetLogger, debug output goes to stderr.
func SetDebugEnabled(enabled bool) {
	entry := pkgLogger.Load()
	if !enabled {
		entry.Logger.SetLevel(logrus.InfoLevel)
		return
	}
	if entry.Logger.Out == io.Discard {
		entry.Logger.SetOutput(logrus.StandardLogger().Out)
	}
	entry.Logger.SetLevel(logrus.DebugLevel)
}

func debugf(format string, args ...any) {
	pkgLogger.Load().Debugf(format, args...)
}

func debugln(args ...any) {
	pkgLogger.Load().Debugln(args...)
}
