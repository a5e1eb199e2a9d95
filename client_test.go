// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package raptor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carabiner-dev/raptor/internal/certs"
	"github.com/carabiner-dev/raptor/options"
)

// keymakerGraph returns a key objects document with one nonkey and, when
// certPEMBody is not empty, the client keystore.
func keymakerGraph(name, value, certBody, keyBody string) string {
	keystores := `[]`
	if certBody != "" {
		keystores = fmt.Sprintf(`[{"keystore": {"name": %q, "entries": [
    {"entry_type": "KeyEntry", "entry": {"keypair": {
      "state": "enabled",
      "certificates": [{"encoded_cert": %q}],
      "private_key": {"encoded_private_key": %q}
    }}}
  ]}}]`, certs.KeystoreName, certBody, keyBody)
	}
	return fmt.Sprintf(`{
  "nonkeys": [{"nonkey": {"name": %q, "state": "enabled", "encoded_key_data": %q}}],
  "keystores": %s
}`, name, base64.StdEncoding.EncodeToString([]byte(value)), keystores)
}

// newKeymaker starts a fake keymaker serving body and counts its requests.
func newKeymaker(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("X-KM-APP-CONTEXT") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func testOptions(t *testing.T, endpoint string) *options.Client {
	t.Helper()
	dir := t.TempDir()
	opts := options.Default()
	opts.KeymakerEndpoint = endpoint
	opts.CertFile = filepath.Join(dir, "client.crt")
	opts.KeyFile = filepath.Join(dir, "client.key")
	return opts
}

func TestNewClient(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := NewClient(testOptions(t, "http://localhost"))
		require.NoError(t, err)
		require.NotNil(t, c)
		require.NoError(t, c.Close())
	})
	t.Run("invalid-options", func(t *testing.T) {
		opts := testOptions(t, "http://localhost")
		opts.CacheTTLDays = 0
		opts.Timeout = 0
		_, err := NewClient(opts)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrConfiguration))
	})
	t.Run("from-env", func(t *testing.T) {
		t.Setenv(options.EnvVarProfile, "prod")
		t.Setenv(options.EnvVarCacheTTLDays, "2")
		c, err := NewClient(nil)
		require.NoError(t, err)
		require.True(t, c.options.Production)
		require.Equal(t, 2, c.options.CacheTTLDays)
	})
	t.Run("from-env-invalid", func(t *testing.T) {
		t.Setenv(options.EnvVarCacheTTLDays, "soon")
		_, err := NewClient(nil)
		require.Error(t, err)
	})
}

func TestClientResolveContext(t *testing.T) {
	srv, calls := newKeymaker(t, keymakerGraph("svcA_svcB_app_context", "ctx-value", "", ""))
	c, err := NewClient(testOptions(t, srv.URL))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		value, found, err := c.ResolveContext(ctx, "svcA", "svcB", "token")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "ctx-value", value)
	}
	require.Equal(t, int32(1), calls.Load())

	// A reset sends the next resolution back to keymaker
	c.Reset(ctx)
	_, _, err = c.ResolveContext(ctx, "svcA", "svcB", "token")
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}

func TestClientCertificatePaths(t *testing.T) {
	opts := testOptions(t, "http://localhost")
	c, err := NewClient(opts)
	require.NoError(t, err)

	certFile, keyFile := c.CertificatePaths()
	require.Equal(t, opts.CertFile, certFile)
	require.Equal(t, opts.KeyFile, keyFile)
}
