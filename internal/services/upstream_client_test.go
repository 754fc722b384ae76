package services

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/delivery-hours/internal/config"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

func newTestClient(endpoints ...string) *UpstreamClient {
	return NewUpstreamClient("venue", config.ServiceConfig{
		Endpoints: endpoints,
		Timeout:   2000,
		Retries:   2,
		BackoffMS: 1,
	}, logger.NewNop())
}

func TestUpstreamClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/venue-service/delivery-hours", r.URL.Path)
		assert.Equal(t, "berlin", r.URL.Query().Get("city"))
		_, _ = w.Write([]byte(`{"monday":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL + "/venue-service/")
	body, err := c.Get(context.Background(), "/delivery-hours", url.Values{"city": {"berlin"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"monday":[]}`, string(body))
}

func TestUpstreamClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Get(context.Background(), "/venues/x/opening-hours", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpstreamClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad venue id", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Get(context.Background(), "/venues/x/opening-hours", nil)
	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusBadRequest, upstreamErr.StatusCode)
	assert.Equal(t, "bad venue id", upstreamErr.Detail)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUpstreamClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Get(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestUpstreamClient_ExhaustedRetriesKeepStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Get(context.Background(), "/x", nil)
	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusServiceUnavailable, upstreamErr.StatusCode)
}

func TestUpstreamClient_TransportFailureIs500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := newTestClient(addr).Get(context.Background(), "/x", nil)
	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
	assert.NotNil(t, upstreamErr.Unwrap())
}

func TestUpstreamClient_RoundRobinAndReplace(t *testing.T) {
	c := newTestClient("http://a", "http://b")
	assert.Equal(t, "http://a", c.selectEndpoint())
	assert.Equal(t, "http://b", c.selectEndpoint())
	assert.Equal(t, "http://a", c.selectEndpoint())

	c.ReplaceEndpoints([]string{"http://c/"})
	assert.Equal(t, []string{"http://c"}, c.Endpoints())
	assert.Equal(t, "http://c", c.selectEndpoint())

	c.ReplaceEndpoints(nil)
	_, err := c.Get(context.Background(), "/x", nil)
	var upstreamErr *UpstreamError
	assert.True(t, errors.As(err, &upstreamErr))
}

func TestUpstreamClient_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.NoError(t, newTestClient(srv.URL).HealthCheck(context.Background()))
	assert.Error(t, newTestClient().HealthCheck(context.Background()))
}

func TestUpstreamClient_UseTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewUpstreamClient("venue", config.ServiceConfig{Endpoints: []string{srv.URL}, Timeout: 2000}, logger.NewNop())
	_, err := c.Get(context.Background(), "/", nil)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr, "self-signed cert must be rejected by default")

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	c.UseTLS(&tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12})

	body, err := c.Get(context.Background(), "/", nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(body))
}
