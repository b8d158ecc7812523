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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textRecord is a 12 byte well known text record "hello" with MB set.
var textRecord = []byte{0x91, 0x01, 0x08, 'T', 0x02, 'e', 'n', 'h', 'e', 'l', 'l', 'o'}

// appRecordHeader returns a long form external record header for the
// SmarTag type with the given flags.
func appRecordHeader(flags byte, payloadLen uint32) []byte {
	h := []byte{flags, byte(len(AppRecordType)),
		byte(payloadLen >> 24), byte(payloadLen >> 16), byte(payloadLen >> 8), byte(payloadLen)}
	return append(h, AppRecordType...)
}

// loadImage writes a tag image with the NDEF TLV in tlvCell and the message
// right after it, in an unconnected mock.
func loadImage(cc []byte, tlvCell int, message []byte) *MockTransport {
	m := NewMockTransport()
	m.Unconnected = true

	image := append([]byte{}, cc...)
	for len(image) < tlvCell*CellSize {
		image = append(image, 0)
	}
	image = append(image, ndefTLVType, tlvLongForm, byte(len(message)>>8), byte(len(message)))
	image = append(image, message...)
	for len(image)%CellSize != 0 {
		image = append(image, 0)
	}
	for i := 0; i < len(image); i += CellSize {
		m.Set(uint16(i/CellSize), Cell{image[i], image[i+1], image[i+2], image[i+3]})
	}
	return m
}

var standardCC = []byte{0xE2, 0x40, 0x02, 0x00}

func TestScanPayloadOffsetScenario(t *testing.T) {
	t.Parallel()

	message := append(append([]byte{}, textRecord...), appRecordHeader(0x44, 468)...)
	m := loadImage(standardCC, 1, message)
	m.Set(11, Cell{0x3C, 0x00, 0x01, 0x05})

	ctx := context.Background()
	cc, err := DecodeCapabilityContainer(m.Get(0))
	require.NoError(t, err)
	assert.False(t, cc.Extended)
	assert.Equal(t, Standard4KCells, cc.TotalCells())

	offset, err := ScanPayloadOffset(ctx, m, cc)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), offset)

	layout, err := ResolveLayout(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, MemoryLayout{
		TotalSize:          0x80,
		PayloadOffset:      10,
		FirstSampleAddress: 26,
		LastAddress:        0x7F,
		MaxSamples:         50,
	}, layout)

	conf := DecodeConfiguration(m.Get(layout.Address(AddrSamplingConfig)), Cell{}, Cell{})
	assert.Equal(t, 60, conf.IntervalSeconds)
	assert.Equal(t, ModeSampling, conf.Mode)
	assert.True(t, conf.Temperature.Enabled)
	assert.True(t, conf.Pressure.Enabled)
	assert.False(t, conf.Humidity.Enabled)
	assert.False(t, conf.Acceleration.Enabled)
}

func TestScanPayloadOffset(t *testing.T) {
	t.Parallel()

	uri := []byte{0x11, 0x01, 0x04, 'U', 0x04, 'a', '.', 'b'}   // 8 bytes
	mime := []byte{0x12, 0x03, 0x02, 'a', '/', 'b', 0x00, 0x00} // 8 bytes
	similar := concat([]byte{0x14, 0x0E, 0x03}, []byte("st.com:smartaG"), []byte{1, 2, 3})

	tests := []struct {
		name    string
		cc      []byte
		message []byte
		tlvCell int
		want    uint16
		wantErr error
	}{
		{
			name:    "application record first",
			cc:      standardCC,
			tlvCell: 1,
			message: appRecordHeader(0xC4, 100),
			want:    7,
		},
		{
			name:    "after two unrelated records",
			cc:      standardCC,
			tlvCell: 1,
			message: concat(uri, mime, appRecordHeader(0x44, 100)),
			want:    11,
		},
		{
			name:    "similar external type is skipped",
			cc:      standardCC,
			tlvCell: 1,
			message: concat(similar, appRecordHeader(0x44, 100)),
			want:    12,
		},
		{
			name:    "last record with similar type",
			cc:      standardCC,
			tlvCell: 1,
			message: concat([]byte{0x54, 0x0E, 0x00}, []byte("st.com:smartaG")),
			wantErr: ErrLayoutNotFound,
		},
		{
			name:    "last record without match",
			cc:      standardCC,
			tlvCell: 1,
			message: concat([]byte{0xD1, 0x01, 0x08}, textRecord[3:]),
			wantErr: ErrLayoutNotFound,
		},
		{
			name:    "id length moves the payload",
			cc:      standardCC,
			tlvCell: 1,
			message: concat(textRecord, []byte{0x4C, 0x0E, 0x00, 0x00, 0x00, 0x10, 0x03}, []byte(AppRecordType), []byte("id1")),
			want:    11,
		},
		{
			name:    "short form record",
			cc:      standardCC,
			tlvCell: 1,
			message: concat(textRecord, []byte{0x54, 0x0E, 0xF0}, []byte(AppRecordType)),
			want:    9,
		},
		{
			name:    "extended capability container",
			cc:      []byte{0xE2, 0x40, 0x00, 0x01, 0x00, 0x00, 0x08, 0x00},
			tlvCell: 2,
			message: concat(textRecord, appRecordHeader(0x44, 1000)),
			want:    11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := loadImage(tt.cc, tt.tlvCell, tt.message)
			cc, err := DecodeCapabilityContainer(m.Get(0))
			require.NoError(t, err)

			got, err := ScanPayloadOffset(context.Background(), m, cc)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestScanPayloadOffsetShortTLV(t *testing.T) {
	t.Parallel()

	// Records start in cell 2 whatever form the TLV in cell 1 uses.
	message := concat(textRecord, appRecordHeader(0x44, 100))
	m := NewMockTransport()
	m.Unconnected = true
	image := concat(standardCC, []byte{ndefTLVType, byte(len(message)), 0x00, 0x00}, message)
	for len(image)%CellSize != 0 {
		image = append(image, 0)
	}
	for i := 0; i < len(image); i += CellSize {
		m.Set(uint16(i/CellSize), Cell{image[i], image[i+1], image[i+2], image[i+3]})
	}

	cc, err := DecodeCapabilityContainer(m.Get(0))
	require.NoError(t, err)
	offset, err := ScanPayloadOffset(context.Background(), m, cc)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), offset)
}

func TestScanPayloadOffsetTinyRecordAdvances(t *testing.T) {
	t.Parallel()

	// An empty 3 byte record still moves the scan to the next cell.
	message := concat([]byte{0x90, 0x00, 0x00, 0x00}, appRecordHeader(0x44, 100))
	m := loadImage(standardCC, 1, message)
	cc, err := DecodeCapabilityContainer(m.Get(0))
	require.NoError(t, err)

	offset, err := ScanPayloadOffset(context.Background(), m, cc)
	require.NoError(t, err)
	assert.Equal(t, uint16(8), offset)
}

func TestScanPayloadOffsetEmptyTag(t *testing.T) {
	t.Parallel()

	m := NewMockTransport()
	m.Unconnected = true
	m.Set(0, Cell{0xE2, 0x40, 0x10, 0x00})

	cc, err := DecodeCapabilityContainer(m.Get(0))
	require.NoError(t, err)
	_, err = ScanPayloadOffset(context.Background(), m, cc)
	require.ErrorIs(t, err, ErrLayoutNotFound)
}

func TestScanPayloadOffsetPropagatesTransportErrors(t *testing.T) {
	t.Parallel()

	m := loadImage(standardCC, 1, concat(textRecord, appRecordHeader(0x44, 100)))
	failure := NewTransportError("read", "mock", ErrTransportTimeout, ErrorTypeTimeout)
	m.FailNext(nil, failure)

	// The first queued entry is nil so the text record header read succeeds.
	cc, _ := DecodeCapabilityContainer(m.Get(0))
	_, err := ScanPayloadOffset(context.Background(), m, cc)
	require.ErrorIs(t, err, ErrTransportTimeout)
	assert.NotErrorIs(t, err, ErrLayoutNotFound)
}

func TestScanPayloadOffsetCancelled(t *testing.T) {
	t.Parallel()

	m := loadImage(standardCC, 1, concat(textRecord, appRecordHeader(0x44, 100)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cc, _ := DecodeCapabilityContainer(m.Get(0))
	_, err := ScanPayloadOffset(ctx, m, cc)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeCapabilityContainer(t *testing.T) {
	t.Parallel()

	_, err := DecodeCapabilityContainer(Cell{0x00, 0x40, 0x10, 0x00})
	require.ErrorIs(t, err, ErrInvalidCapabilityContainer)

	cc, err := DecodeCapabilityContainer(Cell{0xE1, 0x40, 0x10, 0x00})
	require.NoError(t, err)
	assert.False(t, cc.Extended)
	assert.Equal(t, uint16(1), cc.tlvCell())

	cc, err = DecodeCapabilityContainer(Cell{0xE2, 0x40, 0x00, 0x01})
	require.NoError(t, err)
	assert.True(t, cc.Extended)
	assert.Equal(t, Extended64KCells, cc.TotalCells())
	assert.Equal(t, uint16(2), cc.tlvCell())
}

func TestParseNDefRecordHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        []byte
		want       NDefRecordHeader
		wantLength int
		wantErr    bool
	}{
		{
			name:       "short record",
			raw:        []byte{0x91, 0x01, 0x08},
			want:       NDefRecordHeader{TypeNameFormat: TNFWellKnown, TypeLength: 1, PayloadLength: 8, IsShortRecord: true},
			wantLength: 3,
		},
		{
			name: "long record",
			raw:  []byte{0x44, 0x0E, 0x00, 0x00, 0x01, 0xD4},
			want: NDefRecordHeader{
				TypeNameFormat: TNFExternal, TypeLength: 14, PayloadLength: 468, IsLastRecord: true,
			},
			wantLength: 6,
		},
		{
			name: "short record with id",
			raw:  []byte{0x59, 0x01, 0x02, 0x05},
			want: NDefRecordHeader{
				TypeNameFormat: TNFWellKnown, TypeLength: 1, PayloadLength: 2, IDLength: 5,
				IsShortRecord: true, HasIDLength: true, IsLastRecord: true,
			},
			wantLength: 4,
		},
		{
			name:    "truncated long header",
			raw:     []byte{0x44, 0x0E, 0x00},
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseNDefRecordHeader(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantLength, got.Length())
		})
	}
}
