package providers

import (
	"context"
	"net"

	"github.com/cockroachdb/errors"
)

type ErrorKind string

const (
	KindRateLimited       ErrorKind = "RateLimited"
	KindTimeout           ErrorKind = "Timeout"
	KindMalformedResponse ErrorKind = "MalformedResponse"
	KindUpstreamRejected  ErrorKind = "UpstreamRejected"
)

var (
	// ErrNoPairedReturnFlights is wrapped by the UpstreamRejected error a
	// token-paginated round trip fails with when no outbound option could be
	// paired with a return.
	ErrNoPairedReturnFlights = errors.New("no paired return flights available")

	// ErrUnsupportedTrip is wrapped when a provider cannot answer the
	// requested trip type.
	ErrUnsupportedTrip = errors.New("trip type not supported")
)

type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return e.Provider + ": " + string(e.Kind) + ": " + msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, kind ErrorKind, err error) *ProviderError {
	pe := &ProviderError{
		Provider: provider,
		Kind:     kind,
		Err:      err,
	}
	if err != nil {
		pe.Reason = err.Error()
	}
	return pe
}

// Rejected builds an UpstreamRejected error with a human-readable reason.
func Rejected(provider, reason string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     KindUpstreamRejected,
		Reason:   reason,
		Err:      errors.New(reason),
	}
}

// Classify turns any adapter failure into a ProviderError. Errors that
// already are ProviderErrors are returned as-is.
func Classify(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if isTimeout(err) {
		return NewProviderError(provider, KindTimeout, err)
	}
	return NewProviderError(provider, KindUpstreamRejected, err)
}

// kindOf reports the failure kind of err, classifying it when needed.
func kindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	return Classify("", err).Kind
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
