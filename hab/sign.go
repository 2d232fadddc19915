// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hab

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"

	"github.com/digitorus/pkcs7"
)

func parseCertificate(certPEMBlock []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEMBlock)

	if block == nil {
		return nil, &CryptoError{Reason: "failed to parse certificate PEM"}
	}

	crt, err := x509.ParseCertificate(block.Bytes)

	if err != nil {
		return nil, &CryptoError{Reason: err.Error()}
	}

	return crt, nil
}

func parsePrivateKey(keyPEMBlock []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(keyPEMBlock)

	if block == nil {
		return nil, &CryptoError{Reason: "failed to parse private key PEM"}
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	return nil, &CryptoError{Reason: "failed to parse private key"}
}

// detachedSign generates a detached CMS SignedData structure, in binary
// mode and DER encoding, over the passed buffer. The signer certificate is
// excluded from the structure as HAB verifies it through the certificate
// record installed by the CSF.
func detachedSign(buf []byte, certPEMBlock []byte, keyPEMBlock []byte) (sig []byte, err error) {
	crt, err := parseCertificate(certPEMBlock)

	if err != nil {
		return
	}

	key, err := parsePrivateKey(keyPEMBlock)

	if err != nil {
		return
	}

	signer, ok := key.(crypto.Signer)

	if !ok {
		return nil, &CryptoError{Reason: "private key cannot sign"}
	}

	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })

	if !ok || !pub.Equal(crt.PublicKey) {
		return nil, &CryptoError{Reason: "private key does not match certificate"}
	}

	signedData, err := pkcs7.NewSignedData(buf)

	if err != nil {
		return nil, &CryptoError{Reason: err.Error()}
	}

	signedData.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	err = signedData.AddSigner(crt, key, pkcs7.SignerInfoConfig{SkipCertificates: true})

	if err != nil {
		return nil, &CryptoError{Reason: err.Error()}
	}

	signedData.Detach()

	if sig, err = signedData.Finish(); err != nil {
		return nil, &CryptoError{Reason: err.Error()}
	}

	return
}
