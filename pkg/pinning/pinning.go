package pinning

import (
	"crypto/subtle"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	stderrors "errors"
	"os"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
)

// Decision is the outcome of comparing a presented certificate with the pin
type Decision int

const (
	Mismatch Decision = iota
	Match
)

func (d Decision) String() string {
	if d == Match {
		return "match"
	}
	return "mismatch"
}

// LoadKind classifies why the pinned certificate could not be loaded
type LoadKind string

const (
	LoadKindMissing LoadKind = "missing"
	LoadKindEmpty   LoadKind = "empty"
)

const loadKindKey = "load_kind"

// PinnedCertificate holds the DER bytes of the only certificate the
// watchdog trusts. It is immutable once loaded.
type PinnedCertificate struct {
	der  []byte
	path string
}

// LoadPinnedCertificate reads the pin from disk. If the file holds any PEM
// block, the first CERTIFICATE block is the pin and surrounding text such as
// openssl subject/issuer lines is ignored. Otherwise the raw bytes are the pin.
func LoadPinnedCertificate(path string) (*PinnedCertificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewCertificateError("pinned certificate file is missing or unreadable", err).
			WithContext("path", path).
			WithContext(loadKindKey, LoadKindMissing)
	}

	der := data
	if certDER, isPEM := decodePEMCertificate(data); isPEM {
		der = certDER
	}

	if len(der) == 0 {
		return nil, errors.NewCertificateError("pinned certificate file is empty", nil).
			WithContext("path", path).
			WithContext(loadKindKey, LoadKindEmpty)
	}

	return &PinnedCertificate{der: der, path: path}, nil
}

// NewPinnedCertificate pins an in-memory DER encoded certificate
func NewPinnedCertificate(der []byte) (*PinnedCertificate, error) {
	if len(der) == 0 {
		return nil, errors.NewCertificateError("pinned certificate is empty", nil).
			WithContext(loadKindKey, LoadKindEmpty)
	}
	return &PinnedCertificate{der: append([]byte(nil), der...)}, nil
}

// LoadKindOf extracts the load failure kind from an error returned by
// LoadPinnedCertificate.
func LoadKindOf(err error) (LoadKind, bool) {
	var domainErr *errors.DomainError
	if !stderrors.As(err, &domainErr) || domainErr.Type != errors.ErrorTypeCertificate {
		return "", false
	}
	kind, ok := domainErr.Context[loadKindKey].(LoadKind)
	return kind, ok
}

// decodePEMCertificate returns the first CERTIFICATE block of data. Text
// around the blocks is skipped. isPEM is false when data holds no PEM block.
func decodePEMCertificate(data []byte) (der []byte, isPEM bool) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, isPEM
		}
		isPEM = true
		if block.Type == "CERTIFICATE" {
			return block.Bytes, true
		}
	}
}

// Path returns the file the pin was loaded from, if any
func (p *PinnedCertificate) Path() string {
	return p.path
}

// Len returns the size of the pinned DER encoding
func (p *PinnedCertificate) Len() int {
	return len(p.der)
}

// Bytes returns a copy of the pinned DER encoding
func (p *PinnedCertificate) Bytes() []byte {
	return append([]byte(nil), p.der...)
}

// Match compares presented DER bytes against the pin
func (p *PinnedCertificate) Match(presented []byte) Decision {
	return Validate(presented, p.der)
}

// VerifyPeer checks the leaf of a presented chain against the pin.
// It returns a certificate error on mismatch or when no certificate
// was presented.
func (p *PinnedCertificate) VerifyPeer(chain []*x509.Certificate) error {
	if len(chain) == 0 {
		return errors.NewCertificateError("server presented no certificate", nil)
	}
	leaf := chain[0].Raw
	if p.Match(leaf) != Match {
		return errors.NewCertificateError("server certificate does not match pinned certificate", nil).
			WithContext("presented_size", len(leaf)).
			WithContext("pinned_size", len(p.der)).
			WithContext("subject", chain[0].Subject.String())
	}
	return nil
}

// VerifyConnection is suitable for tls.Config.VerifyConnection. Returning
// an error aborts the handshake before any application data is exchanged.
func (p *PinnedCertificate) VerifyConnection(state tls.ConnectionState) error {
	return p.VerifyPeer(state.PeerCertificates)
}

// TLSConfig returns a client configuration where the pin replaces CA chain
// verification. Session tickets are disabled so every handshake presents
// the full certificate.
func (p *PinnedCertificate) TLSConfig(serverName string) *tls.Config {
	return &tls.Config{
		ServerName:             serverName,
		InsecureSkipVerify:     true,
		VerifyConnection:       p.VerifyConnection,
		SessionTicketsDisabled: true,
		MinVersion:             tls.VersionTLS12,
	}
}

// Validate decides Match iff presented and pinned have the same length and
// identical bytes. An empty presented certificate never matches.
func Validate(presented, pinned []byte) Decision {
	if len(presented) == 0 || len(presented) != len(pinned) {
		return Mismatch
	}
	if subtle.ConstantTimeCompare(presented, pinned) != 1 {
		return Mismatch
	}
	return Match
}
