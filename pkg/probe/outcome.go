package probe

import (
	"time"

	"github.com/core-tools/hsu-watchdog/pkg/classifier"
)

// Kind tags the result of one probe
type Kind int

const (
	KindSuccess Kind = iota
	KindNetworkFailure
	KindCertificateMismatch
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindNetworkFailure:
		return "network_failure"
	case KindCertificateMismatch:
		return "certificate_mismatch"
	default:
		return "unknown"
	}
}

// Outcome is the transient result of a single probe. Signal is only
// meaningful when Kind is KindSuccess.
type Outcome struct {
	Kind       Kind
	Signal     int
	StatusCode int
	BytesRead  int64
	Duration   time.Duration
	Err        error
}

// Succeeded reports whether the request completed with a pinned certificate
func (o Outcome) Succeeded() bool {
	return o.Kind == KindSuccess
}

// IsHealthy reports whether the probe succeeded and the body carried a
// healthy character signal.
func (o Outcome) IsHealthy() bool {
	return o.Succeeded() && classifier.IsHealthySignal(o.Signal)
}

// Success builds a successful outcome for the given signal
func Success(signal int) Outcome {
	return Outcome{Kind: KindSuccess, Signal: signal}
}

// Failure builds a failed outcome of the given kind
func Failure(kind Kind, err error) Outcome {
	return Outcome{Kind: kind, Err: err}
}
