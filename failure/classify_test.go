package failure_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"testing"
	"unicode/utf8"

	"github.com/jrsteele09/go-dash-session/failure"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want failure.Kind
	}{
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, failure.Network},
		{"no response", failure.ErrNoResponse, failure.Network},
		{"dns", &url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{Err: "no such host", Name: "x"}}, failure.Network},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), failure.Timeout},
		{"net timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, failure.Timeout},
		{"401", failure.NewStatusError(http.StatusUnauthorized, nil), failure.Unauthorized},
		{"403", failure.NewStatusError(http.StatusForbidden, nil), failure.Forbidden},
		{"404", failure.NewStatusError(http.StatusNotFound, nil), failure.NotFound},
		{"429", failure.NewStatusError(http.StatusTooManyRequests, nil), failure.RateLimited},
		{"500", failure.NewStatusError(http.StatusInternalServerError, nil), failure.ServerFault},
		{"503", failure.NewStatusError(http.StatusServiceUnavailable, nil), failure.ServerFault},
		{"400", failure.NewStatusError(http.StatusBadRequest, nil), failure.Unknown},
		{"decode", failure.NewDecodeError([]byte("{"), errors.New("unexpected EOF")), failure.InvalidResponse},
		{"json syntax", &json.SyntaxError{Offset: 3}, failure.InvalidResponse},
		{"already classified", failure.New(failure.Forbidden, errors.New("x")), failure.Forbidden},
		{"anything else", errors.New("boom"), failure.Unknown},
		{"nil", nil, failure.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, failure.Classify(tt.err))
		})
	}
}

func TestKind_Retryable(t *testing.T) {
	nonRetryable := map[failure.Kind]bool{
		failure.Unauthorized:    true,
		failure.Forbidden:       true,
		failure.NotFound:        true,
		failure.InvalidResponse: true,
	}
	for _, k := range failure.Kinds() {
		require.Equal(t, !nonRetryable[k], k.Retryable(), k.String())
	}
}

func TestKind_UserGuidance(t *testing.T) {
	require.True(t, failure.Unauthorized.PromptsReauth())
	require.False(t, failure.Forbidden.PromptsReauth())
	require.False(t, failure.Forbidden.AllowsManualRetry())
	require.True(t, failure.Network.AllowsManualRetry())
	require.True(t, failure.Timeout.AllowsManualRetry())
	require.True(t, failure.ServerFault.AllowsManualRetry())
}

func TestWrap(t *testing.T) {
	err := failure.Wrap(failure.NewStatusError(http.StatusUnauthorized, []byte(`{"error":"expired"}`)))

	require.ErrorIs(t, err, failure.ErrUnauthorized)
	require.NotErrorIs(t, err, failure.ErrForbidden)

	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, http.StatusUnauthorized, fe.StatusCode)
	require.Equal(t, `{"error":"expired"}`, fe.Snippet)
	require.Equal(t, failure.Unauthorized, failure.KindOf(err))

	require.Same(t, err, failure.Wrap(err))
	require.NoError(t, failure.Wrap(nil))
}

func TestSnippet_Bounded(t *testing.T) {
	body := []byte(strings.Repeat("é", failure.MaxSnippet))
	s := failure.Snippet(body)

	require.LessOrEqual(t, len(s), failure.MaxSnippet)
	require.True(t, strings.HasPrefix(string(body), s))
}

func TestSnippet_InvalidByteEarlyKeepsTheRest(t *testing.T) {
	body := []byte(strings.Repeat("a", 300))
	body[10] = 0xff

	s := failure.Snippet(body)
	require.Equal(t, strings.Repeat("a", failure.MaxSnippet-1), s)
	require.True(t, utf8.ValidString(s))
}

func TestSnippet_DropsSplitRuneAtTheEnd(t *testing.T) {
	body := append([]byte(strings.Repeat("a", failure.MaxSnippet-1)), "é!"...)

	s := failure.Snippet(body)
	require.Equal(t, strings.Repeat("a", failure.MaxSnippet-1), s)
}
