// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package certs writes the mutual TLS client certificate and key found in
// the keymaker key objects to disk.
//
// The output paths are a process wide resource: a process must only run
// one Materializer.
package certs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/carabiner-dev/raptor/internal/cache"
	"github.com/carabiner-dev/raptor/internal/common"
	"github.com/carabiner-dev/raptor/internal/keymaker"
	"github.com/carabiner-dev/raptor/internal/metrics"
)

const (
	// KeystoreName is the keystore holding the client keypair.
	KeystoreName = "custom_to_altus_mutual_hrz_keystore"

	// FlagKey is the cache key recording that the files were written.
	FlagKey = "client_cert"

	DefaultCertFile = "client.crt"
	DefaultKeyFile  = "client.key"
)

// Materializer writes the client certificate files at most once per
// lifetime of its cache flag. Once written, the files are not refreshed
// until the flag expires, even if the keystore rotates in keymaker.
type Materializer struct {
	cache      *cache.Cache
	production bool
	certFile   string
	keyFile    string
	mu         sync.Mutex
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithProduction enables writing. Outside production Materialize does
// nothing.
func WithProduction(production bool) Option {
	return func(m *Materializer) {
		m.production = production
	}
}

// WithPaths sets where the certificate bundle and the key are written.
// Empty values keep the defaults.
func WithPaths(certFile, keyFile string) Option {
	return func(m *Materializer) {
		if certFile != "" {
			m.certFile = certFile
		}
		if keyFile != "" {
			m.keyFile = keyFile
		}
	}
}

// New returns a materializer storing its flag in c.
func New(c *cache.Cache, opts ...Option) *Materializer {
	m := &Materializer{
		cache:    c,
		certFile: DefaultCertFile,
		keyFile:  DefaultKeyFile,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// CertFile returns the path of the certificate bundle.
func (m *Materializer) CertFile() string { return m.certFile }

// KeyFile returns the path of the private key.
func (m *Materializer) KeyFile() string { return m.keyFile }

// Done reports whether the files have been written in this flag lifetime.
func (m *Materializer) Done() bool {
	_, ok := m.cache.Get(FlagKey)
	return ok
}

// Materialize extracts the client keypair from graph and writes it to disk.
// A graph without the client keystore is not an error, there is just
// nothing to write. The flag is only set when the files were written or
// there was nothing to write, so a failed write is retried on the next call.
func (m *Materializer) Materialize(ctx context.Context, graph *keymaker.Graph) error {
	if !m.production {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Done() {
		return nil
	}

	if graph == nil || graph.Keystores == nil {
		metrics.RecordMaterialization(metrics.StatusError)
		return fmt.Errorf("%w: the application context can't load keystores", common.ErrConfiguration)
	}

	ks := graph.FindKeystore(KeystoreName)
	if ks == nil {
		clog.FromContext(ctx).Debugf("keystore %s not found, no client certificate to write", KeystoreName)
		m.cache.Set(FlagKey, true)
		metrics.RecordMaterialization(metrics.StatusSkipped)
		return nil
	}

	certPEM, keyPEM := EncodeKeystore(ks)

	if err := m.write(certPEM, keyPEM); err != nil {
		metrics.RecordMaterialization(metrics.StatusError)
		return err
	}

	m.cache.Set(FlagKey, true)
	metrics.RecordMaterialization(metrics.StatusSuccess)
	clog.FromContext(ctx).Infof("wrote client certificate to %s and key to %s", m.certFile, m.keyFile)
	return nil
}

func (m *Materializer) write(certPEM, keyPEM []byte) error {
	dir := filepath.Dir(m.certFile)
	unlock, err := lockDir(dir)
	if err != nil {
		return &common.PersistenceError{Path: dir, Err: err}
	}
	defer unlock()

	// Both files are staged before either is replaced so a failed write
	// never leaves a new certificate next to an old key
	certTmp, err := stageFile(m.certFile, certPEM, 0o644)
	if err != nil {
		return &common.PersistenceError{Path: m.certFile, Err: err}
	}
	keyTmp, err := stageFile(m.keyFile, keyPEM, 0o600)
	if err != nil {
		os.Remove(certTmp) //nolint:errcheck,gosec
		return &common.PersistenceError{Path: m.keyFile, Err: err}
	}

	if err := os.Rename(keyTmp, m.keyFile); err != nil {
		os.Remove(keyTmp)  //nolint:errcheck,gosec
		os.Remove(certTmp) //nolint:errcheck,gosec
		return &common.PersistenceError{Path: m.keyFile, Err: fmt.Errorf("renaming file: %w", err)}
	}
	if err := os.Rename(certTmp, m.certFile); err != nil {
		// Without a key the pair is not loaded until the next write
		os.Remove(certTmp)   //nolint:errcheck,gosec
		os.Remove(m.keyFile) //nolint:errcheck,gosec
		return &common.PersistenceError{Path: m.certFile, Err: fmt.Errorf("renaming file: %w", err)}
	}
	return nil
}
