package security

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
)

// Signer signs and verifies webhook payloads with RSA-SHA256 (PKCS#1 v1.5).
type Signer interface {
	Sign(payload []byte) ([]byte, error)
	Verify(payload, signature []byte) error
}

type rsaSigner struct {
	pub  *rsa.PublicKey
	priv *rsa.PrivateKey // nil => verify-only
}

func NewRSASigner(pub *rsa.PublicKey, priv *rsa.PrivateKey) (Signer, error) {
	if pub == nil && priv != nil {
		pub = &priv.PublicKey
	}
	if pub == nil {
		return nil, errors.New("rsa public key required")
	}
	return &rsaSigner{pub: pub, priv: priv}, nil
}

func (s *rsaSigner) Sign(payload []byte) ([]byte, error) {
	if s.priv == nil {
		return nil, errors.New("signing not configured (no RSA private key)")
	}
	sum := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.priv, crypto.SHA256, sum[:])
	if err != nil {
		return nil, fmt.Errorf("rsa sign: %w", err)
	}
	return sig, nil
}

func (s *rsaSigner) Verify(payload, signature []byte) error {
	sum := sha256.Sum256(payload)
	if err := rsa.VerifyPKCS1v15(s.pub, crypto.SHA256, sum[:], signature); err != nil {
		return fmt.Errorf("rsa verify: %w", err)
	}
	return nil
}
