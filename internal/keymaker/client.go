// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package keymaker is a client for the keymaker key object API. A Client
// loads every key object visible to an application context token once, on
// creation, and answers nonkey lookups from that snapshot.
package keymaker

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/carabiner-dev/raptor/internal/common"
	"github.com/carabiner-dev/raptor/internal/metrics"
)

const (
	// ContextHeader carries the application context token on keymaker calls.
	ContextHeader = "X-KM-APP-CONTEXT"

	// KeyObjectsPath is the API path returning all key objects of a context.
	KeyObjectsPath = "/kmsapi/v1/keyobject/all"

	// maxErrorBody caps how much of an error response ends up in an error.
	maxErrorBody = 4096
)

// Client holds the key objects fetched from keymaker for one token.
type Client struct {
	graph *Graph
}

type config struct {
	endpoint   string
	httpClient *http.Client
	insecure   bool
	timeout    time.Duration
}

// Option configures how New reaches keymaker.
type Option func(*config)

// WithEndpoint sets the keymaker base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *config) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient replaces the HTTP client. When set, WithInsecureTransport
// and WithTimeout are ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// WithInsecureTransport disables TLS certificate verification of the
// keymaker endpoint.
func WithInsecureTransport(insecure bool) Option {
	return func(c *config) {
		c.insecure = insecure
	}
}

// WithTimeout sets the timeout of the fetch request.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New fetches the key objects for token and returns a client to query them.
func New(ctx context.Context, token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: an application context is required to load keymaker contexts", common.ErrInvalidArgument)
	}

	cfg := &config{
		timeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.endpoint == "" {
		return nil, fmt.Errorf("%w: keymaker endpoint not set", common.ErrConfiguration)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = NewHTTPClient(cfg.insecure, cfg.timeout)
	}

	start := time.Now()
	graph, err := fetch(ctx, cfg, token)
	metrics.RecordKeymakerFetch(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &Client{graph: graph}, nil
}

// NewHTTPClient returns an HTTP client for keymaker calls. Callers making
// repeated fetches build one and pass it to New with WithHTTPClient.
func NewHTTPClient(insecure bool, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:errcheck,forcetypeassert
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: insecure, //nolint:gosec // Explicit opt-in through options
		MinVersion:         tls.VersionTLS12,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// fetch calls the key object API. The token never leaves this function in
// an error message.
func fetch(ctx context.Context, cfg *config, token string) (*Graph, error) {
	fp := Fingerprint(token)
	url := strings.TrimSuffix(cfg.endpoint, "/") + KeyObjectsPath

	clog.FromContext(ctx).Debugf("fetching keymaker key objects from %s (token %s)", url, fp)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &common.TransportError{Op: "building keymaker request", Fingerprint: fp, Err: redactError(err, token)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ContextHeader, token)

	resp, err := cfg.httpClient.Do(req)
	if err != nil {
		return nil, &common.TransportError{Op: "fetching keymaker key objects", Fingerprint: fp, Err: redactError(err, token)}
	}
	defer func() {
		// Drained bodies let the transport reuse the connection
		io.Copy(io.Discard, resp.Body) //nolint:errcheck,gosec
		resp.Body.Close()              //nolint:errcheck,gosec
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck
		return nil, &common.RemoteServiceError{
			Service: "keymaker",
			Status:  resp.StatusCode,
			Body:    Redact(strings.TrimSpace(string(body)), token),
		}
	}

	graph := &Graph{}
	if err := json.NewDecoder(resp.Body).Decode(graph); err != nil {
		return nil, &common.TransportError{Op: "decoding keymaker response", Fingerprint: fp, Err: redactError(err, token)}
	}

	clog.FromContext(ctx).Debugf(
		"keymaker returned %d nonkeys and %d keystores (token %s)",
		len(graph.Nonkeys), len(graph.Keystores), fp,
	)
	return graph, nil
}

// Graph returns the key objects loaded when the client was created.
func (c *Client) Graph() *Graph {
	return c.graph
}

// NonkeyValue looks up the first enabled nonkey called name and returns its
// fully decoded value. When no nonkey matches it returns ErrNotFound if
// required is set, otherwise an empty string and false.
func (c *Client) NonkeyValue(name string, required bool) (string, bool, error) {
	name = strings.TrimSpace(name)
	for _, item := range c.graph.Nonkeys {
		if item.Nonkey.Name == name && item.Nonkey.State == StateEnabled {
			return DecodeValue(item.Nonkey.EncodedKeyData), true, nil
		}
	}

	if required {
		return "", false, fmt.Errorf("%w: key %q doesn't exist in keymaker", common.ErrNotFound, name)
	}
	return "", false, nil
}

// ApplicationContextKey returns the nonkey name holding the application
// context a source service uses to call a target service.
func ApplicationContextKey(source, target string) string {
	return fmt.Sprintf("%s_%s_app_context", source, target)
}
