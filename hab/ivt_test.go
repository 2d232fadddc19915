// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hab

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSelf = 0x87800000

// testImage builds a synthetic imx image of the given size, with an IVT at
// the start, boot data right after it and boot data length reserving the
// requested CSF space on top of the boot media offset.
func testImage(t *testing.T, size int, reserved int) []byte {
	t.Helper()

	imx := make([]byte, size)

	for i := ivtSize + bootDataSize; i < size; i++ {
		imx[i] = byte(i)
	}

	imx[0] = HAB_TAG_IVT
	binary.BigEndian.PutUint16(imx[1:3], ivtSize)
	imx[3] = HAB_VER
	binary.LittleEndian.PutUint32(imx[4:8], testSelf+0x100)
	binary.LittleEndian.PutUint32(imx[16:20], testSelf+ivtSize)
	binary.LittleEndian.PutUint32(imx[20:24], testSelf)
	binary.LittleEndian.PutUint32(imx[24:28], testSelf+uint32(size))

	binary.LittleEndian.PutUint32(imx[32:36], testSelf-DEFAULT_OFFSET)
	binary.LittleEndian.PutUint32(imx[36:40], uint32(DEFAULT_OFFSET+size+reserved))

	return imx
}

func TestParseIVT(t *testing.T) {
	imx := testImage(t, 0x1000, 0x2000)

	ivt, err := ParseIVT(imx)
	require.NoError(t, err)

	require.Equal(t, uint8(HAB_TAG_IVT), ivt.Tag)
	require.Equal(t, uint16(ivtSize), ivt.Length)
	require.Equal(t, uint8(HAB_VER), ivt.Version)
	require.Equal(t, uint32(testSelf+0x100), ivt.Entry)
	require.Equal(t, uint32(0), ivt.DCD)
	require.Equal(t, uint32(testSelf+ivtSize), ivt.BootData)
	require.Equal(t, uint32(testSelf), ivt.Self)
	require.Equal(t, uint32(testSelf+0x1000), ivt.CSF)
}

func TestParseIVTInvalidTag(t *testing.T) {
	imx := testImage(t, 0x1000, 0x2000)
	imx[0] = 0xff

	_, err := ParseIVT(imx)
	require.Error(t, err)

	var fmtErr *FormatError
	require.ErrorAs(t, err, &fmtErr)
}

func TestParseIVTInvalidLength(t *testing.T) {
	imx := testImage(t, 0x1000, 0x2000)
	binary.BigEndian.PutUint16(imx[1:3], 0x1234)

	var fmtErr *FormatError
	_, err := ParseIVT(imx)
	require.ErrorAs(t, err, &fmtErr)
}

func TestParseIVTShortImage(t *testing.T) {
	var fmtErr *FormatError
	_, err := ParseIVT(make([]byte, ivtSize-1))
	require.ErrorAs(t, err, &fmtErr)
}

func TestParseBootData(t *testing.T) {
	imx := testImage(t, 0x1000, 0x2000)

	ivt, err := ParseIVT(imx)
	require.NoError(t, err)

	bd, err := ParseBootData(imx, ivt)
	require.NoError(t, err)

	require.Equal(t, uint32(testSelf-DEFAULT_OFFSET), bd.Start)
	require.Equal(t, uint32(DEFAULT_OFFSET+0x1000+0x2000), bd.Length)
	require.Equal(t, uint32(0), bd.Plugin)
}

func TestParseBootDataOutOfBounds(t *testing.T) {
	imx := testImage(t, 0x1000, 0x2000)
	binary.LittleEndian.PutUint32(imx[16:20], testSelf+0x1000)

	ivt, err := ParseIVT(imx)
	require.NoError(t, err)

	var fmtErr *FormatError
	_, err = ParseBootData(imx, ivt)
	require.ErrorAs(t, err, &fmtErr)
}

func TestParseBootDataBeforeSelf(t *testing.T) {
	imx := testImage(t, 0x1000, 0x2000)
	binary.LittleEndian.PutUint32(imx[16:20], testSelf-4)

	ivt, err := ParseIVT(imx)
	require.NoError(t, err)

	var fmtErr *FormatError
	_, err = ParseBootData(imx, ivt)
	require.ErrorAs(t, err, &fmtErr)
}

func TestCSFSize(t *testing.T) {
	bd := &BootData{Length: 0x4400}

	// 0x4400 - 0x4000 - 0x400 leaves no reserved space
	size, err := bd.CSFSize(0x4000, DEFAULT_OFFSET)
	require.NoError(t, err)
	require.Equal(t, 0, size)

	size, err = bd.CSFSize(0x2000, DEFAULT_OFFSET)
	require.NoError(t, err)
	require.Equal(t, 0x2000, size)

	var fmtErr *FormatError
	_, err = bd.CSFSize(0x4400, DEFAULT_OFFSET)
	require.ErrorAs(t, err, &fmtErr)
}
