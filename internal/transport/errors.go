package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies transport failures
type ErrorKind int

const (
	KindNetwork   ErrorKind = iota // Connection-level failure
	KindTimeout                    // Deadline elapsed before a response
	KindBadStatus                  // Non-2xx HTTP status
	KindBadBody                    // Response body could not be interpreted
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindBadStatus:
		return "bad_status"
	case KindBadBody:
		return "bad_body"
	default:
		return "unknown"
	}
}

// Error is a classified transport failure. It is always returned as a value;
// callers fold it into session state rather than propagating it upward.
type Error struct {
	Kind     ErrorKind
	Endpoint string
	Status   int // HTTP status, set for KindBadStatus
	Err      error
}

func (e *Error) Error() string {
	if e.Kind == KindBadStatus {
		return fmt.Sprintf("%s: %s returned status %d", e.Kind, e.Endpoint, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Endpoint)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from err, defaulting to KindNetwork
func KindOf(err error) ErrorKind {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return KindNetwork
}

// IsTimeout reports whether err is a timeout-class transport failure
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// classify wraps a raw request error as a transport Error
func classify(endpoint string, err error) *Error {
	kind := KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &Error{Kind: kind, Endpoint: endpoint, Err: err}
}
