package failure

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
)

// Classify maps a raw failure to exactly one Kind. It is pure and total.
// Only the status code and the bounded snippet of a failure are inspected.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}

	var se *StatusError
	if errors.As(err, &se) {
		return FromStatus(se.StatusCode)
	}

	var de *DecodeError
	if errors.As(err, &de) {
		return InvalidResponse
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Timeout
	}

	if errors.Is(err, ErrNoResponse) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return Network
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Network
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Network
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return InvalidResponse
	}

	return Unknown
}

// FromStatus maps an HTTP status code. Success codes map to Unknown since
// they are not failures.
func FromStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized:
		return Unauthorized
	case code == http.StatusForbidden:
		return Forbidden
	case code == http.StatusNotFound:
		return NotFound
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code >= 500 && code <= 599:
		return ServerFault
	}
	return Unknown
}
