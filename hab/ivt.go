// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hab

import (
	"encoding/binary"
	"fmt"
)

// IVT represents an Image Vector Table, the fixed header the boot ROM
// locates at the start of a bootable image
// (p309, 8.7.1.1 Image vector table structure, IMX6ULRM).
type IVT struct {
	Tag      uint8
	Length   uint16
	Version  uint8
	Entry    uint32
	DCD      uint32
	BootData uint32
	Self     uint32
	CSF      uint32
}

// BootData represents the boot data structure referenced by the IVT
// (p310, 8.7.1.2 Boot data structure, IMX6ULRM).
type BootData struct {
	Start  uint32
	Length uint32
	Plugin uint32
}

// ParseIVT reads the Image Vector Table at the start of an image. The IVT
// header carries a big-endian length, all pointer fields are little-endian.
func ParseIVT(imx []byte) (ivt *IVT, err error) {
	if len(imx) < ivtSize {
		return nil, &FormatError{Reason: fmt.Sprintf("image too short for IVT (%d bytes)", len(imx))}
	}

	ivt = &IVT{
		Tag:     imx[0],
		Length:  binary.BigEndian.Uint16(imx[1:3]),
		Version: imx[3],
	}

	if ivt.Tag != HAB_TAG_IVT {
		return nil, &FormatError{Reason: fmt.Sprintf("invalid IVT tag %#.2x", ivt.Tag)}
	}

	if ivt.Length != ivtSize {
		return nil, &FormatError{Reason: fmt.Sprintf("invalid IVT length %d", ivt.Length)}
	}

	ivt.Entry = binary.LittleEndian.Uint32(imx[4:8])
	ivt.DCD = binary.LittleEndian.Uint32(imx[12:16])
	ivt.BootData = binary.LittleEndian.Uint32(imx[16:20])
	ivt.Self = binary.LittleEndian.Uint32(imx[20:24])
	ivt.CSF = binary.LittleEndian.Uint32(imx[24:28])

	return
}

// ParseBootData reads the boot data structure referenced by an image IVT,
// the structure is addressed relative to the IVT load address (Self).
func ParseBootData(imx []byte, ivt *IVT) (bd *BootData, err error) {
	if ivt.BootData < ivt.Self {
		return nil, &FormatError{Reason: fmt.Sprintf("boot data pointer %#.8x precedes self pointer %#.8x", ivt.BootData, ivt.Self)}
	}

	off := int(ivt.BootData - ivt.Self)

	if off+bootDataSize > len(imx) {
		return nil, &FormatError{Reason: fmt.Sprintf("boot data offset %#x outside image", off)}
	}

	bd = &BootData{
		Start:  binary.LittleEndian.Uint32(imx[off : off+4]),
		Length: binary.LittleEndian.Uint32(imx[off+4 : off+8]),
		Plugin: binary.LittleEndian.Uint32(imx[off+8 : off+12]),
	}

	return
}

// CSFSize returns the exact size reserved for the CSF blob, computed as the
// total boot data length minus the image size and the boot media offset
// preceding the IVT (see DEFAULT_OFFSET).
func (bd *BootData) CSFSize(imageSize int, offset uint32) (size int, err error) {
	size = int(bd.Length) - imageSize - int(offset)

	if size < 0 {
		return 0, &FormatError{Reason: fmt.Sprintf("boot data length %d shorter than image size %d + offset %d", bd.Length, imageSize, offset)}
	}

	return
}
