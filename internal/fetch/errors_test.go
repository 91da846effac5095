package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/nao1215/seoaudit/internal/model"
)

// TestClassify tests mapping of transport errors to error kinds.
func TestClassify(t *testing.T) {
	t.Parallel()

	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	tests := []struct {
		name string
		err  error
		want model.ErrorKind
	}{
		{name: "nil", err: nil, want: model.ErrorKindNone},
		{name: "deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), want: model.ErrorKindTimeout},
		{name: "canceled", err: context.Canceled, want: model.ErrorKindCanceled},
		{name: "dns not found", err: &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}, want: model.ErrorKindDNS},
		{name: "dns timeout", err: &net.DNSError{Err: "i/o timeout", Name: "slow.example", IsTimeout: true}, want: model.ErrorKindTimeout},
		{name: "connection refused", err: refused, want: model.ErrorKindConnection},
		{name: "connection reset", err: syscall.ECONNRESET, want: model.ErrorKindConnection},
		{name: "robots", err: fmt.Errorf("check: %w", ErrRobotsDisallowed), want: model.ErrorKindRobots},
		{name: "typed error keeps its kind", err: &Error{Kind: model.ErrorKindDNS, Err: errors.New("x")}, want: model.ErrorKindDNS},
		{name: "anything else", err: errors.New("malformed response"), want: model.ErrorKindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// TestError tests the typed fetch error.
func TestError(t *testing.T) {
	t.Parallel()

	err := newError("https://example.com/", context.DeadlineExceeded)
	if err.Kind != model.ErrorKindTimeout {
		t.Errorf("expected timeout kind, got %v", err.Kind)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected errors.Is to see the wrapped error")
	}
	if got := err.Error(); got != "timeout: https://example.com/: context deadline exceeded" {
		t.Errorf("unexpected message %q", got)
	}
}
