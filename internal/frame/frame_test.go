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

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	got, err := Build(HostToReader, []byte{CmdSelectTag})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x01, 0x2B, 0x00}, got)

	_, err = Build(HostToReader, make([]byte, MaxFrameDataLength+1))
	require.ErrorIs(t, err, ErrDataTooLarge)
}

func TestParse(t *testing.T) {
	t.Parallel()

	response, err := Build(ReaderToHost, []byte{0x11, StatusOK, 0x00, 1, 2, 3, 4})
	require.NoError(t, err)

	corrupted := append([]byte(nil), response...)
	corrupted[7] ^= 0xFF

	badLength := append([]byte(nil), response...)
	badLength[4]++

	tests := []struct {
		name     string
		buf      []byte
		tfi      byte
		want     []byte
		consumed int
		wantErr  error
	}{
		{name: "response", buf: response, tfi: ReaderToHost, want: []byte{0x11, 0x00, 0x00, 1, 2, 3, 4}, consumed: len(response)},
		{name: "leading noise", buf: append([]byte{0x55, 0x55}, response...), tfi: ReaderToHost, want: []byte{0x11, 0x00, 0x00, 1, 2, 3, 4}, consumed: len(response) + 2},
		{name: "ack", buf: AckFrame, tfi: ReaderToHost, consumed: len(AckFrame)},
		{name: "truncated", buf: response[:8], tfi: ReaderToHost, wantErr: ErrIncomplete},
		{name: "header only", buf: response[:4], tfi: ReaderToHost, wantErr: ErrIncomplete},
		{name: "no start code", buf: []byte{0x01, 0x02}, tfi: ReaderToHost, wantErr: ErrNoStartCode},
		{name: "data checksum", buf: corrupted, tfi: ReaderToHost, wantErr: ErrDataChecksum},
		{name: "length checksum", buf: badLength, tfi: ReaderToHost, wantErr: ErrLengthChecksum},
		{name: "wrong direction", buf: response, tfi: HostToReader, wantErr: ErrUnexpectedTFI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, consumed, err := Parse(tt.buf, tt.tfi)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
			assert.Equal(t, tt.consumed, consumed)
		})
	}
}

func TestIsAck(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAck(append(append([]byte(nil), AckFrame...), 0x00, 0x00)))
	assert.False(t, IsAck(NackFrame))
}
