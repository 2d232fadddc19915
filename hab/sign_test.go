// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hab

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/digitorus/pkcs7"
)

func testKeypair(t *testing.T, cn string) (keyPEMBlock []byte, certPEMBlock []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: cn,
		},
		NotBefore: time.Now(),
		NotAfter:  time.Now().Add(1 * time.Hour),
		KeyUsage:  x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	keyPEMBlock = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	certPEMBlock = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	return
}

func TestDetachedSign(t *testing.T) {
	keyPEMBlock, certPEMBlock := testKeypair(t, "CSF")

	sig, err := detachedSign([]byte("arbitrary payload"), certPEMBlock, keyPEMBlock)
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	p7, err := pkcs7.Parse(sig)
	require.NoError(t, err)

	// detached signature, signer certificate excluded
	require.Empty(t, p7.Content)
	require.Empty(t, p7.Certificates)
}

func TestDetachedSignStableLength(t *testing.T) {
	keyPEMBlock, certPEMBlock := testKeypair(t, "CSF")

	// CSF pointer resolution relies on the CMS output length being
	// payload independent for a given certificate and key
	a, err := detachedSign(make([]byte, 72), certPEMBlock, keyPEMBlock)
	require.NoError(t, err)

	b, err := detachedSign(make([]byte, 0x100000), certPEMBlock, keyPEMBlock)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
}

func TestDetachedSignKeyMismatch(t *testing.T) {
	keyPEMBlock, _ := testKeypair(t, "CSF")
	_, certPEMBlock := testKeypair(t, "IMG")

	var cryptoErr *CryptoError
	_, err := detachedSign([]byte("payload"), certPEMBlock, keyPEMBlock)
	require.ErrorAs(t, err, &cryptoErr)
}

func TestDetachedSignInvalidPEM(t *testing.T) {
	keyPEMBlock, certPEMBlock := testKeypair(t, "CSF")

	var cryptoErr *CryptoError

	_, err := detachedSign([]byte("payload"), []byte("not a certificate"), keyPEMBlock)
	require.ErrorAs(t, err, &cryptoErr)

	_, err = detachedSign([]byte("payload"), certPEMBlock, []byte("not a key"))
	require.ErrorAs(t, err, &cryptoErr)
}

func TestParsePrivateKeyPKCS1(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keyPEMBlock := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	parsed, err := parsePrivateKey(keyPEMBlock)
	require.NoError(t, err)
	require.IsType(t, &rsa.PrivateKey{}, parsed)
}
