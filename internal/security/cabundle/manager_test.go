package cabundle

import (
	"crypto/tls"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

func writeServerCert(t *testing.T, path string, srv *httptest.Server) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestNewManager_NoBundle(t *testing.T) {
	m, err := NewManager("", false, logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, m.RootCAs())
	assert.Nil(t, m.TLSConfig().RootCAs)
	assert.NoError(t, m.ForceReload())
	assert.NoError(t, m.Close())
}

func TestNewManager_InvalidBundle(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a cert"), 0o600))
	_, err := NewManager(garbage, false, logger.NewNop())
	assert.ErrorIs(t, err, errInvalidPEMData)

	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(key, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1}}), 0o600))
	_, err = NewManager(key, false, logger.NewNop())
	assert.ErrorIs(t, err, errUnexpectedPEMBlock)

	_, err = NewManager(filepath.Join(dir, "missing.pem"), false, logger.NewNop())
	assert.Error(t, err)
}

func TestManager_TrustsBundledServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "upstream-ca.pem")
	writeServerCert(t, path, srv)

	m, err := NewManager(path, false, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, m.Close()) })

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: m.TLSConfig()}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// without the bundle the test server's self-signed cert is rejected
	bare, err := NewManager("", false, logger.NewNop())
	require.NoError(t, err)
	_, err = (&http.Client{Transport: &http.Transport{TLSClientConfig: bare.TLSConfig()}}).Get(srv.URL)
	assert.Error(t, err)
}

func TestManager_ForceReloadNotifies(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "upstream-ca.pem")
	writeServerCert(t, path, srv)

	m, err := NewManager(path, true, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	var calls atomic.Int32
	var last atomic.Pointer[tls.Config]
	m.OnChange(func(c *tls.Config) {
		calls.Add(1)
		last.Store(c)
	})

	require.NoError(t, m.ForceReload())
	assert.Equal(t, int32(1), calls.Load())
	require.NotNil(t, last.Load())
	assert.True(t, last.Load().InsecureSkipVerify)
	assert.NotNil(t, last.Load().RootCAs)
}
