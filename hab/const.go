// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hab implements Command Sequence File (CSF) generation for the
// NXP High Assurance Boot (HABv4) engine found in i.MX application
// processors.
//
// The package produces the CSF blob appended to a bootable image to
// establish the HAB chain of trust: SRK table installation, CSF and IMG
// certificate installation and the detached CMS signatures authenticating
// the CSF itself and the target image.
//
// IMPORTANT: secure boot on i.MX SoCs, unlike similar features on modern
// PCs, is an irreversible action that permanently fuses verification key
// hashes on the device. Any errors in the signing PKI or CSF generation
// can therefore brick the device.
package hab

// HAB structure tags
// (p37, 6.2 Structure, HABv4 API RM)
const (
	HAB_TAG_IVT = 0xd1
	HAB_TAG_DCD = 0xd2
	HAB_TAG_CSF = 0xd4
	HAB_TAG_CRT = 0xd7
	HAB_TAG_SIG = 0xd8
)

// HAB version
const HAB_VER = 0x40

// HAB command tags
// (p38, 6.3 Command, HABv4 API RM)
const (
	HAB_CMD_INS_KEY = 0xbe
	HAB_CMD_AUT_DAT = 0xca
)

// HAB protocols
// (p62, 6.6 Protocol, HABv4 API RM)
const (
	HAB_PCL_SRK  = 0x03
	HAB_PCL_X509 = 0x09
	HAB_PCL_CMS  = 0xc5
)

// HAB algorithms
// (p63, 6.7 Algorithm, HABv4 API RM)
const (
	HAB_ALG_ANY    = 0x00
	HAB_ALG_SHA256 = 0x17
	HAB_ALG_PKCS1  = 0x21
)

// HAB engines
// (p64, 6.8 Engine, HABv4 API RM)
const (
	HAB_ENG_ANY  = 0x00
	HAB_ENG_SCC  = 0x03
	HAB_ENG_DCP  = 0x1b
	HAB_ENG_CAAM = 0x1d
	HAB_ENG_HDCP = 0x24
	HAB_ENG_ROM  = 0x36
	HAB_ENG_SW   = 0xff
)

// HAB_CMD_INS_KEY flags
// (p40, 6.3.2 Install Key, HABv4 API RM)
const (
	HAB_CMD_INS_KEY_CLR = 0
	HAB_CMD_INS_KEY_ABS = 1
	HAB_CMD_INS_KEY_CSF = 2
	HAB_CMD_INS_KEY_DAT = 4
	HAB_CMD_INS_KEY_CFG = 8
	HAB_CMD_INS_KEY_FID = 16
	HAB_CMD_INS_KEY_MID = 32
	HAB_CMD_INS_KEY_CID = 64
	HAB_CMD_INS_KEY_HSH = 128
)

// DEFAULT_OFFSET is the offset between the start of the boot media and the
// IVT, fixed at 1024 bytes for SD/MMC devices.
const DEFAULT_OFFSET = 0x400

// DCD_OFFSET is the default OCRAM staging address applied by the boot ROM
// to the IVT DCD pointer when an image is loaded through the Serial
// Download Protocol.
const DCD_OFFSET = 0x00910000

// fixed structure sizes
const (
	headerSize   = 4
	ivtSize      = 32
	bootDataSize = 12
	blockSize    = 8
)
