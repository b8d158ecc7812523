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

// Package logging builds the logrus loggers used by the command line tools.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logrus creates per-context loggers sharing a level and an output.
type Logrus struct {
	output io.Writer
	level  logrus.Level
}

// NewLogrus creates a new logrus factory. Unknown levels fall back to info.
func NewLogrus(level string, output io.Writer) *Logrus {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	return &Logrus{level: parsed, output: output}
}

// Level returns the configured level.
func (l *Logrus) Level() logrus.Level {
	return l.level
}

// Get returns a logger tagged with the given context
func (l *Logrus) Get(context string) *logrus.Entry {
	log := logrus.New()
	log.SetLevel(l.level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(l.output)

	return log.WithFields(logrus.Fields{
		"Context": context,
	})
}
