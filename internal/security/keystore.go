package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadRSAPublicKey accepts either inline PEM or a path to a PEM file.
func LoadRSAPublicKey(pemOrPath string) (*rsa.PublicKey, error) {
	raw, err := pemBytes(pemOrPath)
	if err != nil {
		return nil, err
	}
	return ParseRSAPublicKeyFromPEM(raw)
}

// LoadRSAPrivateKey accepts either inline PEM or a path to a PEM file.
func LoadRSAPrivateKey(pemOrPath string) (*rsa.PrivateKey, error) {
	raw, err := pemBytes(pemOrPath)
	if err != nil {
		return nil, err
	}
	return ParseRSAPrivateKeyFromPEM(raw)
}

func pemBytes(pemOrPath string) ([]byte, error) {
	if strings.Contains(pemOrPath, "-----BEGIN") {
		return []byte(pemOrPath), nil
	}
	b, err := os.ReadFile(pemOrPath)
	if err != nil {
		return nil, fmt.Errorf("read pem file: %w", err)
	}
	return b, nil
}

func ParseRSAPublicKeyFromPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no pem block")
	}
	pubAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// PKCS#1 "RSA PUBLIC KEY"
		if pub, err2 := x509.ParsePKCS1PublicKey(block.Bytes); err2 == nil {
			return pub, nil
		}
		return nil, err
	}
	pub, ok := pubAny.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not rsa public key")
	}
	return pub, nil
}

func ParseRSAPrivateKeyFromPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no pem block in RSA private key")
	}

	// try PKCS#8 first
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("not an RSA private key in PKCS#8")
	}

	// fallback to PKCS#1
	rsaKey, err2 := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err2 != nil {
		return nil, fmt.Errorf("parse RSA private key failed (PKCS#8: %v, PKCS#1: %v)", err, err2)
	}
	return rsaKey, nil
}
