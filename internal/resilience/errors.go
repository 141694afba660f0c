package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Kind classifies an audit error by how the pipeline must react to it.
type Kind string

const (
	// KindInput: invalid URL or config. Surfaced immediately; aborts the run.
	KindInput Kind = "input"
	// KindNetwork: timeout, DNS, connect failure. Recorded per-URL; the
	// run continues unless the start URL itself is unreachable.
	KindNetwork Kind = "network"
	// KindContent: non-HTML, too short, too large. The page is skipped.
	KindContent Kind = "content"
	// KindParse: malformed HTML/JSON-LD/XML. Analyzers convert these to
	// neutral sub-scores with an issue entry; never fatal.
	KindParse Kind = "parse"
	// KindCapacity: page or chunk limit reached. Normal termination.
	KindCapacity Kind = "capacity"
	// KindPersistence: store unreachable or write rejected. Fatal to the
	// final write; the run is marked failed for audit-trail purposes.
	KindPersistence Kind = "persistence"
	// KindCancelled: cooperative cancellation. Partial results are kept.
	KindCancelled Kind = "cancelled"

	// KindUnknown is returned by KindOf for unclassified errors.
	KindUnknown Kind = "unknown"
)

// Error tags an underlying error with its pipeline kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify wraps err with the given kind. Returns nil if err is nil.
func Classify(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf resolves the kind of an error chain. Explicit tags win; context
// cancellation maps to KindCancelled; network-level failures map to
// KindNetwork; everything else is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return KindNetwork
	}

	return KindUnknown
}

// IsFatal reports whether the error must abort the run. Only input
// errors at start and persistence errors on the final write are fatal;
// everything else degrades to a partial result.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindInput, KindPersistence:
		return true
	}
	return false
}

// TransientError wraps an error that is safe to retry (429, 5xx,
// network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP
// status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient returns true if the error (or any error in its chain) is
// retryable: an explicit TransientError, a network timeout, a connection
// reset, or a DNS failure. Input, content, parse, capacity, and
// cancelled kinds are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	switch KindOf(err) {
	case KindInput, KindContent, KindParse, KindCapacity, KindCancelled:
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
