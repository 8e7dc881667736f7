package probe

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/pinning"
)

// HTTPProber probes a full https URL through net/http. The pin is enforced
// by the transport's VerifyConnection hook, so a mismatch fails the
// handshake and no request is ever written.
type HTTPProber struct {
	target  string
	timeout time.Duration
	buffer  int
	client  *http.Client
	logger  logging.Logger
}

// NewHTTPProber creates a prober for an https URL
func NewHTTPProber(target string, pin *pinning.PinnedCertificate, options Options, logger logging.Logger) (*HTTPProber, error) {
	if err := validateOptions(pin, options); err != nil {
		return nil, err
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.NewValidationError("invalid target URL", err).WithContext("target", target)
	}
	if u.Scheme != "https" {
		return nil, errors.NewValidationError("target URL must use https", nil).WithContext("target", target)
	}
	if u.Hostname() == "" {
		return nil, errors.NewValidationError("target URL has no host", nil).WithContext("target", target)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     pin.TLSConfig(u.Hostname()),
		TLSHandshakeTimeout: options.Timeout,
		DisableKeepAlives:   true,
		ReadBufferSize:      options.BufferSize,
	}

	return &HTTPProber{
		target:  u.String(),
		timeout: options.Timeout,
		buffer:  options.BufferSize,
		client: &http.Client{
			Transport: transport,
			Timeout:   options.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}, nil
}

// Probe issues one GET against the target
func (p *HTTPProber) Probe(ctx context.Context) Outcome {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	outcome := p.probe(ctx)
	outcome.Duration = time.Since(started)

	logOutcome(p.logger, p.target, outcome)
	return outcome
}

func (p *HTTPProber) probe(ctx context.Context) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target, nil)
	if err != nil {
		return Failure(KindNetworkFailure, errors.NewInternalError("failed to build request", err))
	}

	p.logger.Debugf("Sending probe request, target: %s", p.target)

	resp, err := p.client.Do(req)
	if err != nil {
		return failure(ctx, "request", err)
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
