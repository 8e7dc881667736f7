package probe

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/pinning"
)

const defaultReadBufferSize = 4096

// ConnProber probes host:port/path over a TLS connection it dials and
// drives itself. The peer certificate is checked right after the handshake
// and before the request is written; on mismatch the connection is closed
// and no request is sent.
type ConnProber struct {
	host    string
	address string
	path    string
	timeout time.Duration
	buffer  int
	pin     *pinning.PinnedCertificate
	dialer  *net.Dialer
	logger  logging.Logger
}

// NewConnProber creates a prober for an explicit host, port and path
func NewConnProber(host string, port int, path string, pin *pinning.PinnedCertificate, options Options, logger logging.Logger) (*ConnProber, error) {
	if err := validateOptions(pin, options); err != nil {
		return nil, err
	}
	if host == "" {
		return nil, errors.NewValidationError("target host is required", nil)
	}
	if port <= 0 || port > 65535 {
		return nil, errors.NewValidationError("target port must be between 1 and 65535", nil).WithContext("port", port)
	}
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return &ConnProber{
		host:    host,
		address: net.JoinHostPort(host, strconv.Itoa(port)),
		path:    path,
		timeout: options.Timeout,
		buffer:  options.BufferSize,
		pin:     pin,
		dialer:  &net.Dialer{Timeout: options.Timeout},
		logger:  logger,
	}, nil
}

func (p *ConnProber) target() string {
	return "https://" + p.address + p.path
}

// Probe dials, handshakes, validates the pin, then issues one GET
func (p *ConnProber) Probe(ctx context.Context) Outcome {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	outcome := p.probe(ctx)
	outcome.Duration = time.Since(started)

	logOutcome(p.logger, p.target(), outcome)
	return outcome
}

func (p *ConnProber) probe(ctx context.Context) Outcome {
	p.logger.Debugf("Dialing probe target, address: %s", p.address)

	rawConn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return failure(ctx, "dial", err)
	}
	defer rawConn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := rawConn.SetDeadline(deadline); err != nil {
			return failure(ctx, "set deadline", err)
		}
	}

	conn := tls.Client(rawConn, &tls.Config{
		ServerName:             p.host,
		InsecureSkipVerify:     true,
		SessionTicketsDisabled: true,
		MinVersion:             tls.VersionTLS12,
	})
	defer conn.Close()

	if err := conn.HandshakeContext(ctx); err != nil {
		return failure(ctx, "handshake", err)
	}

	state := conn.ConnectionState()
	if err := p.pin.VerifyPeer(state.PeerCertificates); err != nil {
		p.logger.Warnf("Closing connection on certificate mismatch, address: %s", p.address)
		return failure(ctx, "handshake", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target(), nil)
	if err != nil {
		return Failure(KindNetworkFailure, errors.NewInternalError("failed to build request", err))
	}
	req.Close = true

	if err := req.Write(conn); err != nil {
		return failure(ctx, "request write", err)
	}

	bufferSize := p.buffer
	if bufferSize == 0 {
		bufferSize = defaultReadBufferSize
	}

	resp, err := http.ReadResponse(bufio.NewReaderSize(conn, bufferSize), req)
	if err != nil {
		return failure(ctx, "response read", err)
	}
	defer resp.Body.Close()

	counter, err := readBody(resp.Body, p.buffer)
	if err != nil {
		return failure(ctx, "response read", err)
	}

	outcome := Success(counter.Signal())
	outcome.StatusCode = resp.StatusCode
	outcome.BytesRead = counter.Total()
	return outcome
}
