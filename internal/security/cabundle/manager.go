// Package cabundle keeps a certificate pool in sync with a PEM bundle on disk
// so upstream clients can trust a private CA without a restart.
package cabundle

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

const (
	reloadAttempts = 5
	reloadDelay    = 200 * time.Millisecond
)

var (
	errInvalidPEMData     = errors.New("invalid PEM data in CA bundle")
	errUnexpectedPEMBlock = errors.New("unexpected PEM block type")
	errEmptyBundle        = errors.New("no certificates found in CA bundle")
)

// Manager owns the pool built from one bundle file.
type Manager struct {
	path       string
	skipVerify bool
	logger     logger.Logger

	mu       sync.RWMutex
	pool     *x509.CertPool
	onChange []func(*tls.Config)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewManager loads path and watches its directory (editors and Kubernetes
// secret mounts replace files rather than writing in place). An empty path
// yields a Manager whose TLSConfig uses the system roots.
func NewManager(path string, skipVerify bool, log logger.Logger) (*Manager, error) {
	m := &Manager{skipVerify: skipVerify, logger: log}
	if path == "" {
		return m, nil
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("resolve CA bundle path: %w", err)
	}
	m.path = abs
	if err := m.reload(); err != nil {
		return nil, fmt.Errorf("load CA bundle %s: %w", abs, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create CA bundle watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	m.watcher = w
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.watchLoop()

	log.Info("Upstream CA bundle loaded", "path", abs)
	return m, nil
}

// OnChange registers fn to receive a fresh tls.Config after every reload.
func (m *Manager) OnChange(fn func(*tls.Config)) {
	m.mu.Lock()
	m.onChange = append(m.onChange, fn)
	m.mu.Unlock()
}

// RootCAs is nil when no bundle is configured.
func (m *Manager) RootCAs() *x509.CertPool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pool
}

// TLSConfig returns a new client config built from the current pool.
func (m *Manager) TLSConfig() *tls.Config {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: m.skipVerify, //nolint:gosec // opt-in
	}
	if pool := m.RootCAs(); pool != nil {
		cfg.RootCAs = pool
	}
	return cfg
}

// ForceReload re-reads the bundle and notifies subscribers.
func (m *Manager) ForceReload() error {
	if m.path == "" {
		return nil
	}
	if err := m.reload(); err != nil {
		return err
	}
	m.notify()
	return nil
}

// Close stops the watcher. Safe on a Manager without a bundle.
func (m *Manager) Close() error {
	if m.watcher == nil {
		return nil
	}
	close(m.stopCh)
	err := m.watcher.Close()
	<-m.doneCh
	return err
}

func (m *Manager) watchLoop() {
	defer close(m.doneCh)
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != m.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := m.reloadWithRetries(); err != nil {
				m.logger.Warn("Upstream CA bundle reload failed; keeping previous pool", "path", m.path, "error", err)
				continue
			}
			m.logger.Info("Upstream CA bundle reloaded", "path", m.path)
			m.notify()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("Upstream CA bundle watcher error", "error", err)
		case <-m.stopCh:
			return
		}
	}
}

// reloadWithRetries tolerates a file caught half written.
func (m *Manager) reloadWithRetries() error {
	var err error
	for i := 0; i < reloadAttempts; i++ {
		if err = m.reload(); err == nil {
			return nil
		}
		time.Sleep(reloadDelay)
	}
	return err
}

func (m *Manager) reload() error {
	pool, err := loadBundle(m.path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.pool = pool
	m.mu.Unlock()
	return nil
}

func (m *Manager) notify() {
	m.mu.RLock()
	subs := append([]func(*tls.Config){}, m.onChange...)
	m.mu.RUnlock()
	for _, fn := range subs {
		fn(m.TLSConfig())
	}
}

// loadBundle adds every certificate in path to a copy of the system pool.
func loadBundle(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle: %w", err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	added := 0
	for rest := data; len(bytes.TrimSpace(rest)) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, errInvalidPEMData
		}
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("%w: %s", errUnexpectedPEMBlock, block.Type)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		pool.AddCert(cert)
		added++
	}
	if added == 0 {
		return nil, errEmptyBundle
	}
	return pool, nil
}
