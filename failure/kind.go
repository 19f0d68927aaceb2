// Package failure classifies transport and HTTP failures into a closed set of
// semantic kinds that the rest of the client reacts to.
package failure

// Kind is a normalized category of failure, independent of transport codes.
type Kind int

const (
	Unknown         Kind = iota // anything not matched below
	Network                     // no response reached the client
	Timeout                     // caller deadline exceeded
	Unauthorized                // 401, credential invalid or expired
	Forbidden                   // 403, valid credential, insufficient rights
	NotFound                    // 404
	RateLimited                 // 429
	ServerFault                 // 5xx
	InvalidResponse             // body present but undecodable
)

var kindNames = map[Kind]string{
	Unknown:         "unknown",
	Network:         "network",
	Timeout:         "timeout",
	Unauthorized:    "unauthorized",
	Forbidden:       "forbidden",
	NotFound:        "not_found",
	RateLimited:     "rate_limited",
	ServerFault:     "server_fault",
	InvalidResponse: "invalid_response",
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{Unknown, Network, Timeout, Unauthorized, Forbidden, NotFound, RateLimited, ServerFault, InvalidResponse}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// Retryable reports whether a retry policy may attempt the operation again.
// Unauthorized, Forbidden, NotFound and InvalidResponse will not change on retry.
func (k Kind) Retryable() bool {
	switch k {
	case Unauthorized, Forbidden, NotFound, InvalidResponse:
		return false
	}
	return true
}

// PromptsReauth is true when the user has to sign in again.
func (k Kind) PromptsReauth() bool {
	return k == Unauthorized
}

// AllowsManualRetry is true when offering a "try again" action makes sense.
// Forbidden is excluded on purpose: the credential is valid.
func (k Kind) AllowsManualRetry() bool {
	switch k {
	case Network, Timeout, ServerFault:
		return true
	}
	return false
}
