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

package memtag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-smartag"
)

func TestFormatIsFoundByScanner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		variant Variant
	}{
		{name: "4K", variant: Variant4K},
		{name: "64K", variant: Variant64K},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tag, offset, err := NewFormatted(tt.variant)
			require.NoError(t, err)

			cc, err := smartag.DecodeCapabilityContainer(tag.Cell(0))
			require.NoError(t, err)
			assert.Equal(t, tt.variant == Variant64K, cc.Extended)
			assert.Equal(t, tt.variant.Cells(), cc.TotalCells())

			layout, err := smartag.ResolveLayout(context.Background(), direct{t: tag})
			require.NoError(t, err)
			assert.Equal(t, offset, layout.PayloadOffset)
			assert.Equal(t, tt.variant.Cells(), layout.TotalSize)
			assert.Equal(t, offset+smartag.AddrFirstSample, layout.FirstSampleAddress)

			last := tag.Cell(tt.variant.Cells() - 1)
			assert.Equal(t, terminateTLV, last[0])
		})
	}
}

func TestFormatAlignsAnyGreeting(t *testing.T) {
	t.Parallel()

	for _, greeting := range []string{"a", "ab", "abc", "abcd", "hello smartag"} {
		tag := New(Variant4K)
		offset, err := tag.Format(greeting)
		require.NoError(t, err, greeting)

		layout, err := smartag.ResolveLayout(context.Background(), direct{t: tag})
		require.NoError(t, err, greeting)
		assert.Equal(t, offset, layout.PayloadOffset, greeting)
	}
}

func TestTransportRequiresConnection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tag := New(Variant4K)

	_, err := tag.ReadCell(ctx, 0)
	require.ErrorIs(t, err, smartag.ErrNotConnected)

	require.NoError(t, tag.Connect(ctx))
	require.NoError(t, tag.WriteCell(ctx, 10, smartag.Cell{1, 2, 3, 4}))
	c, err := tag.ReadCell(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, smartag.Cell{1, 2, 3, 4}, c)

	_, err = tag.ReadCell(ctx, 0x80)
	require.ErrorIs(t, err, ErrOutOfRange)

	require.NoError(t, tag.Close())
	assert.False(t, tag.Connected())
}

func TestAbsentTag(t *testing.T) {
	t.Parallel()

	tag := New(Variant4K)
	tag.SetPresent(false)
	err := tag.Connect(context.Background())
	require.ErrorIs(t, err, smartag.ErrTagNotFound)
	assert.False(t, smartag.IsRetryable(err))
}

func TestFaultsAndWriteLog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tag := New(Variant4K)
	require.NoError(t, tag.Connect(ctx))

	boom := errors.New("boom")
	tag.SetWriteFault(5, boom)
	tag.SetReadFault(6, boom)

	require.NoError(t, tag.WriteCell(ctx, 4, smartag.Cell{1}))
	require.ErrorIs(t, tag.WriteCell(ctx, 5, smartag.Cell{1}), boom)
	_, err := tag.ReadCell(ctx, 6)
	require.ErrorIs(t, err, boom)

	tag.SetWriteFault(5, nil)
	require.NoError(t, tag.WriteCell(ctx, 5, smartag.Cell{2}))
	assert.Equal(t, []uint16{4, 5}, tag.WriteLog())
}

func TestFirmwareRingBuffer(t *testing.T) {
	t.Parallel()

	tag, _, err := NewFormatted(Variant4K)
	require.NoError(t, err)
	fw, err := NewFirmware(tag, time.UTC)
	require.NoError(t, err)
	layout := fw.Layout()

	tag.SetCell(layout.Address(smartag.AddrSamplePosition),
		smartag.SamplePosition{NextSampleAddress: layout.FirstSampleAddress}.Encode())

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	total := int(layout.MaxSamples) + 3
	for i := 0; i < total; i++ {
		fw.Log(&smartag.EventDataSample{Date: base.Add(time.Duration(i) * time.Minute)})
	}

	pos := smartag.DecodeSamplePosition(tag.Cell(layout.Address(smartag.AddrSamplePosition)))
	assert.Equal(t, uint16(total), pos.SampleCounter)
	next, _ := layout.SampleSlot(3)
	assert.Equal(t, next, pos.NextSampleAddress)
}

func TestFirmwareConfigurationHandshake(t *testing.T) {
	t.Parallel()

	tag, _, err := NewFormatted(Variant4K)
	require.NoError(t, err)
	fw, err := NewFirmware(tag, time.UTC)
	require.NoError(t, err)

	assert.False(t, fw.LoadConfiguration())
	tag.SetCell(fw.Layout().Address(smartag.AddrStatus),
		smartag.TagStatus{NewConfigurationAvailable: true}.Encode())
	assert.True(t, fw.LoadConfiguration())
	assert.False(t, smartag.DecodeTagStatus(tag.Cell(fw.Layout().Address(smartag.AddrStatus))).NewConfigurationAvailable)
}
