package sealing

import (
	"context"
	"crypto"
	"crypto/x509"
	"fmt"
	"os"

	"go.mozilla.org/pkcs7"
	"software.sslmate.com/src/go-pkcs12"
)

// Signer produces the platform's detached cryptographic signature over the
// sealed document bytes.
type Signer interface {
	Sign(ctx context.Context, data []byte) ([]byte, error)
}

// CertificateSigner signs with the platform certificate held in a
// password-protected PKCS#12 keystore. The first private-key entry and its
// chain are used.
type CertificateSigner struct {
	key   crypto.PrivateKey
	cert  *x509.Certificate
	chain []*x509.Certificate
}

// NewCertificateSigner loads the keystore from disk.
func NewCertificateSigner(keystorePath, password string) (*CertificateSigner, error) {
	data, err := os.ReadFile(keystorePath)
	if err != nil {
		return nil, fmt.Errorf("read keystore %s: %w", keystorePath, err)
	}
	return NewCertificateSignerFromKeystore(data, password)
}

// NewCertificateSignerFromKeystore parses keystore bytes directly.
func NewCertificateSignerFromKeystore(data []byte, password string) (*CertificateSigner, error) {
	key, cert, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	return &CertificateSigner{key: key, cert: cert, chain: chain}, nil
}

// Sign returns a detached CMS (PKCS#7) signature over data.
func (s *CertificateSigner) Sign(_ context.Context, data []byte) ([]byte, error) {
	signed, err := pkcs7.NewSignedData(data)
	if err != nil {
		return nil, fmt.Errorf("init signed data: %w", err)
	}
	if err := signed.AddSigner(s.cert, s.key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("add signer: %w", err)
	}
	for _, ca := range s.chain {
		signed.AddCertificate(ca)
	}
	signed.Detach()
	sig, err := signed.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish signature: %w", err)
	}
	return sig, nil
}
