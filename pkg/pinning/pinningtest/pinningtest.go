// Package pinningtest generates throwaway certificates for pinning tests.
package pinningtest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Certificate is a self-signed server certificate and its key
type Certificate struct {
	DER []byte
	TLS tls.Certificate
}

// NewSelfSigned creates a certificate valid for localhost and 127.0.0.1
func NewSelfSigned(t testing.TB, commonName string) Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatalf("generate serial: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	return Certificate{
		DER: der,
		TLS: tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key},
	}
}

// WriteDER writes the raw DER encoding into dir and returns the path
func (c Certificate) WriteDER(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "pin.der")
	if err := os.WriteFile(path, c.DER, 0o600); err != nil {
		t.Fatalf("write pin: %v", err)
	}
	return path
}

// WritePEM writes the PEM encoding into dir and returns the path
func (c Certificate) WritePEM(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "pin.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.DER})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write pin: %v", err)
	}
	return path
}
