package failure

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// MaxSnippet bounds how much of a response body is kept on an error.
const MaxSnippet = 256

// ErrNoResponse marks a call that never produced a response.
var ErrNoResponse = errors.New("no response")

// Sentinels for errors.Is matching on kind.
var (
	ErrNetwork         = &Error{Kind: Network}
	ErrTimeout         = &Error{Kind: Timeout}
	ErrUnauthorized    = &Error{Kind: Unauthorized}
	ErrForbidden       = &Error{Kind: Forbidden}
	ErrNotFound        = &Error{Kind: NotFound}
	ErrRateLimited     = &Error{Kind: RateLimited}
	ErrServerFault     = &Error{Kind: ServerFault}
	ErrInvalidResponse = &Error{Kind: InvalidResponse}
	ErrUnknown         = &Error{Kind: Unknown}
)

// Error is the semantic failure surfaced to callers. It wraps the raw cause.
type Error struct {
	Kind       Kind
	StatusCode int    // 0 when no response was received
	Snippet    string // at most MaxSnippet bytes of the response body
	Err        error
}

// New builds an Error of an explicit kind.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Wrap classifies err and returns it as an *Error. An err that already is an
// *Error is returned unchanged. Wrap(nil) returns nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	e := &Error{Kind: Classify(err), Err: err}
	var se *StatusError
	if errors.As(err, &se) {
		e.StatusCode = se.StatusCode
		e.Snippet = se.Snippet
	}
	var de *DecodeError
	if errors.As(err, &de) {
		e.Snippet = de.Snippet
	}
	return e
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrUnauthorized) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind carried by err, classifying it if needed.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Classify(err)
}

// StatusError is a raw failure: a response arrived with a non-success status.
type StatusError struct {
	StatusCode int
	Snippet    string
}

// NewStatusError keeps only a bounded snippet of body.
func NewStatusError(statusCode int, body []byte) *StatusError {
	return &StatusError{StatusCode: statusCode, Snippet: Snippet(body)}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// DecodeError is a raw failure: a body arrived but could not be decoded or validated.
type DecodeError struct {
	Snippet string
	Err     error
}

func NewDecodeError(body []byte, err error) *DecodeError {
	return &DecodeError{Snippet: Snippet(body), Err: err}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Snippet truncates body to MaxSnippet bytes without splitting a rune.
func Snippet(body []byte) string {
	if len(body) > MaxSnippet {
		body = body[:MaxSnippet]
		// drop a rune cut in half by the truncation
		for i := len(body) - 1; i >= 0 && i >= len(body)-utf8.UTFMax; i-- {
			if utf8.RuneStart(body[i]) {
				if !utf8.FullRune(body[i:]) {
					body = body[:i]
				}
				break
			}
		}
	}
	return strings.ToValidUTF8(string(body), "")
}
