package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-dash-session/failure"
	"github.com/jrsteele09/go-dash-session/gateway"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_ResolvesPathAgainstBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/recommendations", r.URL.Path)
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	tr, err := gateway.NewHTTPTransport(srv.URL + "/api/v1")
	require.NoError(t, err)

	spec, err := gateway.NewJSONRequest(http.MethodGet, "/recommendations?limit=5", nil)
	require.NoError(t, err)

	resp, err := tr.Do(context.Background(), spec)
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, resp.StatusCode)
	require.Equal(t, "short and stout", string(resp.Body))

	_, err = gateway.Exchange(context.Background(), tr, spec)
	require.Equal(t, failure.Unknown, failure.Classify(err))
}

func TestHTTPTransport_SendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		_, _ = w.Write(buf[:n])
	}))
	defer srv.Close()

	tr, err := gateway.NewHTTPTransport(srv.URL)
	require.NoError(t, err)

	spec, err := gateway.NewJSONRequest(http.MethodPost, "echo", map[string]string{"k": "v"})
	require.NoError(t, err)
	resp, err := tr.Do(context.Background(), spec)
	require.NoError(t, err)
	require.JSONEq(t, `{"k":"v"}`, string(resp.Body))
}

func TestHTTPTransport_AttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tr, err := gateway.NewHTTPTransport(srv.URL, gateway.WithAttemptTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), gateway.RequestSpec{Path: "/slow"})
	require.Error(t, err)
	require.Equal(t, failure.Timeout, failure.Classify(err))
}

func TestHTTPTransport_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr, err := gateway.NewHTTPTransport(url)
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), gateway.RequestSpec{Path: "/me"})
	require.Error(t, err)
	require.Equal(t, failure.Network, failure.Classify(err))
}

func TestNewHTTPTransport_RejectsRelativeBase(t *testing.T) {
	_, err := gateway.NewHTTPTransport("/just/a/path")
	require.Error(t, err)
	_, err = gateway.NewHTTPTransport("://bad")
	require.Error(t, err)
}
