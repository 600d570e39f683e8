package apierr_test

// Coverage Notes:
// - Sentinels are checked for identity through wrapping.
// - FromStatus is checked against every classified status and one unclassified.
// - IsRetryable is checked for each sentinel plus cancellation.
// - FromTransport is checked against the network failures it classifies.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"

	"github.com/alnah/go-scribe/internal/apierr"
)

// ---------------------------------------------------------------------------
// TestSentinelErrorWrapping - wrapped errors still match with errors.Is
// ---------------------------------------------------------------------------

func TestSentinelErrorWrapping(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		apierr.ErrRateLimit,
		apierr.ErrQuotaExceeded,
		apierr.ErrTimeout,
		apierr.ErrAuthFailed,
		apierr.ErrBadRequest,
		apierr.ErrServer,
		apierr.ErrUnavailable,
	}

	for _, sentinel := range sentinels {
		t.Run(sentinel.Error(), func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("provider said no: %w", sentinel)
			if !errors.Is(wrapped, sentinel) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", sentinel)
			}
			for _, other := range sentinels {
				if other != sentinel && errors.Is(wrapped, other) {
					t.Errorf("errors.Is(wrapped %v, %v) = true, want false", sentinel, other)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestFromStatus - HTTP status classification
// ---------------------------------------------------------------------------

func TestFromStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want error
	}{
		{http.StatusTooManyRequests, apierr.ErrRateLimit},
		{http.StatusUnauthorized, apierr.ErrAuthFailed},
		{http.StatusRequestTimeout, apierr.ErrTimeout},
		{http.StatusGatewayTimeout, apierr.ErrTimeout},
		{http.StatusBadRequest, apierr.ErrBadRequest},
		{http.StatusRequestEntityTooLarge, apierr.ErrBadRequest},
		{http.StatusUnsupportedMediaType, apierr.ErrBadRequest},
		{http.StatusInternalServerError, apierr.ErrServer},
		{http.StatusBadGateway, apierr.ErrServer},
		{http.StatusServiceUnavailable, apierr.ErrServer},
		{http.StatusOK, nil},
		{http.StatusTeapot, nil},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			t.Parallel()
			if got := apierr.FromStatus(tt.code); got != tt.want {
				t.Errorf("FromStatus(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestIsRetryable - transient vs permanent classification
// ---------------------------------------------------------------------------

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", fmt.Errorf("x: %w", apierr.ErrRateLimit), true},
		{"timeout", apierr.ErrTimeout, true},
		{"server", fmt.Errorf("502: %w", apierr.ErrServer), true},
		{"unavailable", fmt.Errorf("dial: %w", apierr.ErrUnavailable), true},
		{"quota", apierr.ErrQuotaExceeded, false},
		{"auth", apierr.ErrAuthFailed, false},
		{"bad request", apierr.ErrBadRequest, false},
		{"cancelled", context.Canceled, false},
		{"unclassified", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := apierr.IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestFromTransport - network failures before an answer
// ---------------------------------------------------------------------------

func TestFromTransport(t *testing.T) {
	t.Parallel()

	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"connection refused", refused, apierr.ErrUnavailable},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), apierr.ErrUnavailable},
		{"truncated body", io.ErrUnexpectedEOF, apierr.ErrUnavailable},
		{"closed before answer", fmt.Errorf("post: %w", io.EOF), apierr.ErrUnavailable},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), apierr.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := apierr.FromTransport(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("FromTransport(%v) = %v, want %v", tt.err, got, tt.want)
			}
			if !apierr.IsRetryable(got) {
				t.Errorf("FromTransport(%v) is not retryable", tt.err)
			}
		})
	}
}

func TestFromTransport_Unchanged(t *testing.T) {
	t.Parallel()

	for _, err := range []error{nil, context.Canceled, errors.New("boom")} {
		if got := apierr.FromTransport(err); got != err {
			t.Errorf("FromTransport(%v) = %v, want it unchanged", err, got)
		}
	}
}
