// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hab

import (
	"fmt"
)

// FormatError is returned when the target image does not carry a valid boot
// header, or when its boot header describes offsets and sizes incompatible
// with the image file.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid image format, %s", e.Reason)
}

// CryptoError is returned when key or certificate material cannot be
// parsed, or when a private key does not match its certificate.
type CryptoError struct {
	Reason string
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("invalid key material, %s", e.Reason)
}

// SizeOverflowError is returned when the assembled CSF exceeds the space
// reserved by the image boot data, the image must be rebuilt with a larger
// reserved CSF area to be signed.
type SizeOverflowError struct {
	Size     int
	Reserved int
}

func (e *SizeOverflowError) Error() string {
	return fmt.Sprintf("CSF size %d exceeds reserved size %d (%d bytes overflow)",
		e.Size, e.Reserved, e.Size-e.Reserved)
}

// Overflow returns the number of bytes by which the assembled CSF exceeds
// the reserved area.
func (e *SizeOverflowError) Overflow() int {
	return e.Size - e.Reserved
}

// ConsistencyError indicates an internal invariant violation while
// resolving or validating CSF lengths, it always represents a defect.
type ConsistencyError struct {
	Op   string
	Want int
	Got  int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency error, %s (want:%d got:%d)", e.Op, e.Want, e.Got)
}
