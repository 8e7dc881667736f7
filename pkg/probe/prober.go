package probe

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/classifier"
	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/pinning"
)

// Prober performs exactly one HTTPS request per call. Implementations must
// validate the server certificate against the pin during the handshake and
// must not retry.
type Prober interface {
	Probe(ctx context.Context) Outcome
}

// Target identifies the probed endpoint. Either URL is set, or Host, Port
// and Path are.
type Target struct {
	URL  string `yaml:"url,omitempty"`
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
	Path string `yaml:"path,omitempty"`
}

func (t Target) String() string {
	if t.URL != "" {
		return t.URL
	}
	return fmt.Sprintf("https://%s%s", net.JoinHostPort(t.Host, strconv.Itoa(t.Port)), t.Path)
}

// Options tune the transport. BufferSize of zero keeps the transport default.
type Options struct {
	Timeout    time.Duration
	BufferSize int
}

// New picks the backend for target: URL targets go through net/http, host
// targets use an explicit TLS connection.
func New(target Target, pin *pinning.PinnedCertificate, options Options, logger logging.Logger) (Prober, error) {
	if target.URL != "" {
		return NewHTTPProber(target.URL, pin, options, logger)
	}
	return NewConnProber(target.Host, target.Port, target.Path, pin, options, logger)
}

func validateOptions(pin *pinning.PinnedCertificate, options Options) error {
	if pin == nil {
		return errors.NewValidationError("pinned certificate is required", nil)
	}
	if options.Timeout <= 0 {
		return errors.NewValidationError("probe timeout must be positive", nil)
	}
	if options.BufferSize < 0 {
		return errors.NewValidationError("buffer size cannot be negative", nil)
	}
	return nil
}

// readBody streams body into a fresh counter
func readBody(body io.Reader, bufferSize int) (classifier.Counter, error) {
	var counter classifier.Counter
	var buf []byte
	if bufferSize > 0 {
		buf = make([]byte, bufferSize)
	}
	_, err := io.CopyBuffer(&counter, body, buf)
	return counter, err
}

// failure converts a transport error into an outcome. A rejected pin wins
// over everything else, then deadline expiry, then generic network errors.
func failure(ctx context.Context, stage string, err error) Outcome {
	if errors.IsCertificateError(err) {
		return Failure(KindCertificateMismatch, errors.NewNetworkError(stage+" rejected by certificate pin", err))
	}

	var netErr net.Error
	if ctx.Err() == context.DeadlineExceeded ||
		stderrors.Is(err, context.DeadlineExceeded) ||
		(stderrors.As(err, &netErr) && netErr.Timeout()) {
		return Failure(KindNetworkFailure, errors.NewTimeoutError(stage+" timed out", err))
	}

	return Failure(KindNetworkFailure, errors.NewNetworkError(stage+" failed", err))
}

func logOutcome(logger logging.Logger, target string, outcome Outcome) {
	if outcome.Succeeded() {
		logger.Debugf("Probe completed, target: %s, status: %d, bytes: %d, signal: %d, duration: %v",
			target, outcome.StatusCode, outcome.BytesRead, outcome.Signal, outcome.Duration)
		return
	}
	logger.Warnf("Probe failed, target: %s, kind: %s, duration: %v, error: %v",
		target, outcome.Kind, outcome.Duration, outcome.Err)
}
