// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package keymaker

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carabiner-dev/raptor/internal/common"
)

const testGraph = `{
  "nonkeys": [
    {"nonkey": {"name": "svcA_svcB_app_context", "state": "disabled", "encoded_key_data": "ZGlzYWJsZWQ="}},
    {"nonkey": {"name": "svcA_svcB_app_context", "state": "enabled", "encoded_key_data": "aGRydmFs"}},
    {"nonkey": {"name": "plain", "state": "enabled", "encoded_key_data": "not encoded"}}
  ],
  "keystores": []
}`

func newKeymaker(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != KeyObjectsPath || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get(ContextHeader) == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewBlankToken(t *testing.T) {
	for _, token := range []string{"", "   ", "\t\n"} {
		_, err := New(context.Background(), token, WithEndpoint("http://127.0.0.1:1"))
		require.ErrorIs(t, err, common.ErrInvalidArgument)
	}
}

func TestNewNoEndpoint(t *testing.T) {
	_, err := New(context.Background(), "T1")
	require.ErrorIs(t, err, common.ErrConfiguration)
}

func TestNewFetchesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// The token must arrive trimmed
		if r.Header.Get(ContextHeader) != "T1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(testGraph)) //nolint:errcheck
	}))
	defer srv.Close()

	c, err := New(context.Background(), "  T1 ", WithEndpoint(srv.URL+"/"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())
	require.Len(t, c.Graph().Nonkeys, 3)
	require.NotNil(t, c.Graph().Keystores)
	require.Empty(t, c.Graph().Keystores)

	// Lookups are answered from the snapshot
	_, _, err = c.NonkeyValue("plain", true)
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestNonkeyValue(t *testing.T) {
	srv := newKeymaker(t, http.StatusOK, testGraph)
	c, err := New(context.Background(), "T1", WithEndpoint(srv.URL))
	require.NoError(t, err)

	for _, tc := range []struct {
		name     string
		key      string
		required bool
		value    string
		found    bool
		mustErr  error
	}{
		{"first enabled match", "svcA_svcB_app_context", false, "hdrval", true, nil},
		{"name is trimmed", " svcA_svcB_app_context ", true, "hdrval", true, nil},
		{"plain value", "plain", true, "not encoded", true, nil},
		{"missing optional", "nope", false, "", false, nil},
		{"missing required", "nope", true, "", false, common.ErrNotFound},
		{"case sensitive", "PLAIN", false, "", false, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v, found, err := c.NonkeyValue(tc.key, tc.required)
			if tc.mustErr != nil {
				require.ErrorIs(t, err, tc.mustErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.found, found)
			require.Equal(t, tc.value, v)
		})
	}
}

func TestNewRemoteError(t *testing.T) {
	token := "super-secret-token"
	srv := newKeymaker(t, http.StatusForbidden, "context "+token+" is not allowed")

	_, err := New(context.Background(), token, WithEndpoint(srv.URL))
	require.Error(t, err)
	require.ErrorIs(t, err, common.ErrRemoteService)

	var rerr *common.RemoteServiceError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, http.StatusForbidden, rerr.Status)
	require.Contains(t, rerr.Body, "<token>")
	require.NotContains(t, err.Error(), token)
}

func TestNewTransportError(t *testing.T) {
	token := "super-secret-token"
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(context.Background(), token, WithEndpoint(url))
	require.ErrorIs(t, err, common.ErrTransport)
	require.NotContains(t, err.Error(), token)
	require.Contains(t, err.Error(), Fingerprint(token))
}

func TestNewBadJSON(t *testing.T) {
	srv := newKeymaker(t, http.StatusOK, "{not json")
	_, err := New(context.Background(), "T1", WithEndpoint(srv.URL))
	require.ErrorIs(t, err, common.ErrTransport)
}

func TestGraphWithoutKeystores(t *testing.T) {
	srv := newKeymaker(t, http.StatusOK, `{"nonkeys": []}`)
	c, err := New(context.Background(), "T1", WithEndpoint(srv.URL))
	require.NoError(t, err)
	require.Nil(t, c.Graph().Keystores)
}

func TestApplicationContextKey(t *testing.T) {
	require.Equal(t, "svcA_svcB_app_context", ApplicationContextKey("svcA", "svcB"))
	require.Equal(t, "_svcB_app_context", ApplicationContextKey("", "svcB"))
}

func TestRedact(t *testing.T) {
	require.Equal(t, "a <token> b <token>", Redact("a T1 b T1", "T1"))
	require.Equal(t, "unchanged", Redact("unchanged", ""))

	err := redactError(errors.New("dial failed for T1"), "T1")
	require.Equal(t, "dial failed for <token>", err.Error())

	orig := errors.New("dial failed")
	require.Same(t, orig, redactError(orig, "T1"))
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("T1")
	require.Len(t, fp, 12)
	require.Equal(t, fp, Fingerprint("T1"))
	require.NotEqual(t, fp, Fingerprint("T2"))
	require.False(t, strings.Contains(fp, "T1"))
}

func TestDecodedNonkeyLayers(t *testing.T) {
	triple := base64.StdEncoding.EncodeToString([]byte(
		base64.StdEncoding.EncodeToString([]byte(
			base64.StdEncoding.EncodeToString([]byte("hdrval")),
		)),
	))
	body := `{"nonkeys":[{"nonkey":{"name":"k","state":"enabled","encoded_key_data":"` + triple + `"}}]}`
	srv := newKeymaker(t, http.StatusOK, body)

	c, err := New(context.Background(), "T1", WithEndpoint(srv.URL))
	require.NoError(t, err)
	v, ok, err := c.NonkeyValue("k", true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hdrval", v)
}

func TestNewTLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testGraph)) //nolint:errcheck
	}))
	defer srv.Close()

	// The test server certificate is not trusted
	_, err := New(context.Background(), "T1", WithEndpoint(srv.URL), WithTimeout(5*time.Second))
	require.ErrorIs(t, err, common.ErrTransport)

	c, err := New(context.Background(), "T1", WithEndpoint(srv.URL), WithInsecureTransport(true))
	require.NoError(t, err)
	require.Len(t, c.Graph().Nonkeys, 3)
}
