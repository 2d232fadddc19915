// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hab

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Header represents a HAB header structure
// (p37, 6.2 Structure, HABv4 API RM).
type Header struct {
	Tag       uint8
	Length    uint16
	Parameter uint8
}

// NewHeader returns a CSF header, its Length is resolved by the assembler
// to cover the header and all command records.
func NewHeader() *Header {
	return &Header{
		Tag:       HAB_TAG_CSF,
		Parameter: HAB_VER,
	}
}

// Bytes converts the header structure to byte array format.
func (hdr *Header) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, hdr)
	return buf.Bytes()
}

// InstallKey represents a HAB install key command
// (p40, 6.3.2 Install Key, HABv4 API RM).
type InstallKey struct {
	Tag       uint8
	Length    uint16
	Flags     uint8
	Protocol  uint8
	Algorithm uint8
	Source    uint8
	Target    uint8
	Location  uint32
}

// NewInstallKey returns an install key command, its Location field is
// resolved by the assembler once all preceding record lengths are known.
func NewInstallKey() *InstallKey {
	return &InstallKey{
		Tag:    HAB_CMD_INS_KEY,
		Length: 12,
	}
}

// Bytes converts the command structure to byte array format.
func (cmd *InstallKey) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, cmd)
	return buf.Bytes()
}

// Block represents an authenticate data command region of memory
// (p43, 6.3.3 Authenticate Data, HABv4 API RM).
type Block struct {
	Start  uint32
	Length uint32
}

// AuthenticateData represents a HAB authenticate data command
// (p43, 6.3.3 Authenticate Data, HABv4 API RM).
type AuthenticateData struct {
	Tag           uint8
	Length        uint16
	Flags         uint8
	Key           uint8
	Protocol      uint8
	Engine        uint8
	Configuration uint8
	Location      uint32
	Blocks        []Block
}

// NewAuthenticateData returns an authenticate data command, without blocks
// the command implicitly covers the CSF command area.
func NewAuthenticateData(blocks ...Block) *AuthenticateData {
	return &AuthenticateData{
		Tag:    HAB_CMD_AUT_DAT,
		Length: uint16(12 + blockSize*len(blocks)),
		Blocks: blocks,
	}
}

// Bytes converts the command structure to byte array format.
func (cmd *AuthenticateData) Bytes() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.BigEndian, cmd.Tag)
	binary.Write(buf, binary.BigEndian, cmd.Length)
	binary.Write(buf, binary.BigEndian, cmd.Flags)
	binary.Write(buf, binary.BigEndian, cmd.Key)
	binary.Write(buf, binary.BigEndian, cmd.Protocol)
	binary.Write(buf, binary.BigEndian, cmd.Engine)
	binary.Write(buf, binary.BigEndian, cmd.Configuration)
	binary.Write(buf, binary.BigEndian, cmd.Location)

	for _, b := range cmd.Blocks {
		binary.Write(buf, binary.BigEndian, b)
	}

	return buf.Bytes()
}

// Record represents a HAB certificate (0xd7) or signature (0xd8) record,
// wrapping a DER payload zero-padded to a 4-byte boundary.
type Record struct {
	Tag     uint8
	Length  uint16
	Version uint8
	Payload []byte
}

func newRecord(tag uint8, payload []byte) *Record {
	rec := &Record{
		Tag:     tag,
		Version: HAB_VER,
		Payload: pad4(payload),
	}

	rec.Length = uint16(headerSize + len(rec.Payload))

	return rec
}

// NewCertificate returns a certificate record wrapping a DER encoded X.509
// certificate.
func NewCertificate(der []byte) *Record {
	return newRecord(HAB_TAG_CRT, der)
}

// NewSignature returns a signature record wrapping a DER encoded CMS
// detached signature.
func NewSignature(der []byte) *Record {
	return newRecord(HAB_TAG_SIG, der)
}

// Bytes converts the record structure to byte array format.
func (rec *Record) Bytes() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.BigEndian, rec.Tag)
	binary.Write(buf, binary.BigEndian, rec.Length)
	binary.Write(buf, binary.BigEndian, rec.Version)
	buf.Write(rec.Payload)

	return buf.Bytes()
}

func pad4(buf []byte) []byte {
	if r := len(buf) % 4; r != 0 {
		buf = append(buf[:len(buf):len(buf)], make([]byte, 4-r)...)
	}

	return buf
}

// SignOptions describes the CSF signing parameters.
type SignOptions struct {
	// SRK table index (1-4) for the SRK authenticating the chain of trust
	Index int
	// SRK table blob, consumed verbatim
	Table []byte

	// CSF signing key in PEM format
	CSFKeyPEMBlock []byte
	// CSF signing certificate in PEM format
	CSFCertPEMBlock []byte
	// IMG signing key in PEM format
	IMGKeyPEMBlock []byte
	// IMG signing certificate in PEM format
	IMGCertPEMBlock []byte

	// Engine for signature verification (e.g. HAB_ENG_CAAM), HAB_ENG_ANY
	// lets the ROM choose
	Engine uint8

	// Offset between the start of the boot media and the IVT, the CSF
	// reserved size is computed against it (see DEFAULT_OFFSET)
	Offset uint32

	// Base address added to the key and signature record pointers within
	// the CSF, zero emits CSF relative pointers
	Base uint32

	// SDP enables signing for Serial Download Protocol loading, the IVT
	// DCD pointer is replaced with the ROM staging address (see DCD)
	// before the image signature is computed
	SDP bool
	// DCD staging address applied by the ROM in Serial Download Protocol
	// mode (see DCD_OFFSET)
	DCD uint32
}

// Sign generates a Command Sequence File (CSF) blob for the passed image,
// which must start with a valid IVT, according to the passed options.
//
// The CSF installs the SRK table reference, installs and authenticates the
// CSF signing certificate, installs the IMG signing certificate and
// authenticates the image through a detached CMS signature, the returned
// blob is zero padded to the exact size reserved by the image boot data.
func Sign(imx []byte, opts SignOptions) (csf []byte, err error) {
	if opts.Index < 1 || opts.Index > 4 {
		return nil, fmt.Errorf("invalid SRK index %d", opts.Index)
	}

	if len(opts.Table) == 0 {
		return nil, errors.New("missing SRK table")
	}

	ivt, err := ParseIVT(imx)

	if err != nil {
		return
	}

	bd, err := ParseBootData(imx, ivt)

	if err != nil {
		return
	}

	size, err := bd.CSFSize(len(imx), opts.Offset)

	if err != nil {
		return
	}

	csfCrt, err := parseCertificate(opts.CSFCertPEMBlock)

	if err != nil {
		return
	}

	imgCrt, err := parseCertificate(opts.IMGCertPEMBlock)

	if err != nil {
		return
	}

	// install SRK table reference
	srk := NewInstallKey()
	srk.Protocol = HAB_PCL_SRK
	srk.Algorithm = HAB_ALG_SHA256
	srk.Source = uint8(opts.Index - 1)

	// install CSF signing certificate
	csfk := NewInstallKey()
	csfk.Flags = HAB_CMD_INS_KEY_CSF
	csfk.Protocol = HAB_PCL_X509
	csfk.Algorithm = HAB_ALG_ANY
	csfk.Target = 1

	// authenticate CSF command area
	autCSF := NewAuthenticateData()
	autCSF.Key = 1
	autCSF.Protocol = HAB_PCL_CMS
	autCSF.Engine = opts.Engine

	// install IMG signing certificate
	imgk := NewInstallKey()
	imgk.Protocol = HAB_PCL_X509
	imgk.Algorithm = HAB_ALG_ANY
	imgk.Target = 2

	// authenticate image
	autIMG := NewAuthenticateData(Block{
		Start:  ivt.Self,
		Length: uint32(len(imx)),
	})
	autIMG.Key = 2
	autIMG.Protocol = HAB_PCL_CMS
	autIMG.Engine = opts.Engine

	hdr := NewHeader()
	hdr.Length = headerSize + srk.Length + csfk.Length + autCSF.Length + imgk.Length + autIMG.Length

	cmds := func() []byte {
		buf := new(bytes.Buffer)

		buf.Write(hdr.Bytes())
		buf.Write(srk.Bytes())
		buf.Write(csfk.Bytes())
		buf.Write(autCSF.Bytes())
		buf.Write(imgk.Bytes())
		buf.Write(autIMG.Bytes())

		return buf.Bytes()
	}

	csfCrtRec := NewCertificate(csfCrt.Raw)
	imgCrtRec := NewCertificate(imgCrt.Raw)

	// Pointers are resolved in strict emission order, each offset is
	// final only once every preceding record length is known.
	srkOff := int(hdr.Length)
	csfCrtOff := srkOff + len(opts.Table)
	csfSigOff := csfCrtOff + int(csfCrtRec.Length)

	srk.Location = opts.Base + uint32(srkOff)
	csfk.Location = opts.Base + uint32(csfCrtOff)
	autCSF.Location = opts.Base + uint32(csfSigOff)

	img := imx

	if opts.SDP {
		// The ROM applies the DCD staging address to the IVT DCD
		// pointer when loading through SDP, the image signature must
		// cover the resulting memory state.
		img = make([]byte, len(imx))
		copy(img, imx)
		binary.LittleEndian.PutUint32(img[12:16], opts.DCD)
	}

	imgSig, err := detachedSign(img, opts.IMGCertPEMBlock, opts.IMGKeyPEMBlock)

	if err != nil {
		return
	}

	imgSigRec := NewSignature(imgSig)

	// The IMG pointers depend on the CSF signature record length, while
	// the CSF signature covers the command area holding those pointers.
	// CMS output length does not depend on the signed payload for a given
	// certificate and key, a measurement signature fixes the record
	// length before the final one is computed.
	m, err := detachedSign(cmds(), opts.CSFCertPEMBlock, opts.CSFKeyPEMBlock)

	if err != nil {
		return
	}

	csfSigRec := NewSignature(m)

	imgCrtOff := csfSigOff + int(csfSigRec.Length)
	imgSigOff := imgCrtOff + int(imgCrtRec.Length)

	imgk.Location = opts.Base + uint32(imgCrtOff)
	autIMG.Location = opts.Base + uint32(imgSigOff)

	csfSig, err := detachedSign(cmds(), opts.CSFCertPEMBlock, opts.CSFKeyPEMBlock)

	if err != nil {
		return
	}

	if len(csfSig) != len(m) {
		return nil, &ConsistencyError{Op: "CSF signature length changed after pointer resolution", Want: len(m), Got: len(csfSig)}
	}

	csfSigRec = NewSignature(csfSig)

	buf := new(bytes.Buffer)

	buf.Write(cmds())
	buf.Write(opts.Table)
	buf.Write(csfCrtRec.Bytes())
	buf.Write(csfSigRec.Bytes())
	buf.Write(imgCrtRec.Bytes())
	buf.Write(imgSigRec.Bytes())

	if buf.Len() > size {
		return nil, &SizeOverflowError{Size: buf.Len(), Reserved: size}
	}

	if pad := size - buf.Len(); pad > 0 {
		buf.Write(make([]byte, pad))
	}

	if buf.Len() != size {
		return nil, &ConsistencyError{Op: "CSF padding", Want: size, Got: buf.Len()}
	}

	return buf.Bytes(), nil
}
