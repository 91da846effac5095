package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/nao1215/seoaudit/internal/model"
)

var (
	// ErrRobotsDisallowed is returned when robots.txt forbids fetching a URL.
	ErrRobotsDisallowed = errors.New("blocked by robots.txt")

	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrEmptyResponse is returned when a response carries no body reader.
	ErrEmptyResponse = errors.New("empty response body")
)

// Error is a fetch failure annotated with its transport kind.
type Error struct {
	// Kind is the failure class used by the classifier and retry policy.
	Kind model.ErrorKind

	// URL is the URL that failed.
	URL string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err with the kind derived from it.
func newError(rawURL string, err error) *Error {
	return &Error{Kind: Classify(err), URL: rawURL, Err: err}
}

// Classify maps a transport error to an ErrorKind.
//
// The order matters: a context deadline surfaces as a net.Error with
// Timeout() true, and a DNS failure is also a net.OpError, so the more
// specific checks run first.
func Classify(err error) model.ErrorKind {
	if err == nil {
		return model.ErrorKindNone
	}

	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}

	if errors.Is(err, ErrRobotsDisallowed) {
		return model.ErrorKindRobots
	}
	if errors.Is(err, context.Canceled) {
		return model.ErrorKindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ErrorKindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return model.ErrorKindTimeout
		}
		return model.ErrorKindDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.ErrorKindTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return model.ErrorKindConnection
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return model.ErrorKindConnection
	}

	return model.ErrorKindOther
}
