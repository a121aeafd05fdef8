package analysis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/agroscan/agroscan/pkg/whttp"
	"github.com/tidwall/gjson"
)

var (
	// ErrNetworkFailure covers unreachable hosts, timeouts and non-2xx answers.
	ErrNetworkFailure = errors.New("network failure")
	// ErrTimeout is a NetworkFailure caused by a deadline.
	ErrTimeout = fmt.Errorf("%w: request timed out", ErrNetworkFailure)
	// ErrMalformedResponse means the body did not have the expected JSON shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is returned for non-2xx answers.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: %s: status %d", e.Op, ErrNetworkFailure, e.StatusCode)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *StatusError) Unwrap() error { return ErrNetworkFailure }

func statusError(op string, res *whttp.WHTTPRes) error {
	detail := res.HTTPTitle
	if detail == "" && gjson.Valid(res.BodyString) {
		for _, path := range []string{"detail", "error", "message"} {
			if v := gjson.Get(res.BodyString, path); v.Type == gjson.String && v.Str != "" {
				detail = v.Str
				break
			}
		}
	}
	return &StatusError{Op: op, StatusCode: res.StatusCode, Detail: strings.TrimSpace(detail)}
}

// transportError classifies an error that happened before any response was read.
func transportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s: %w: %v", op, ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrNetworkFailure, err)
}

func malformed(op, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w: %s", op, ErrMalformedResponse, fmt.Sprintf(format, args...))
}
