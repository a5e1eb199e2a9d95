// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package raptor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/chainguard-dev/clog"

	"github.com/carabiner-dev/raptor/internal/appcontext"
	"github.com/carabiner-dev/raptor/internal/cache"
	"github.com/carabiner-dev/raptor/internal/certs"
	"github.com/carabiner-dev/raptor/options"
)

// Client is the raptor client.
//
// It resolves the application context of each call from keymaker, caches
// it and, in production, authenticates calls with the client certificate
// materialized from the keymaker keystore. A process should only create one
// Client as the certificate files it writes are shared by the process.
type Client struct {
	options  *options.Client
	cache    *cache.Cache
	certs    *certs.Materializer
	resolver *appcontext.Resolver
	http     *http.Client
}

// NewClient creates a new client instance. If opts is nil the options are
// read from the environment.
func NewClient(opts *options.Client) (*Client, error) {
	if opts == nil {
		var err error
		opts, err = options.FromEnv()
		if err != nil {
			return nil, fmt.Errorf("reading options: %w", err)
		}
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	c := cache.New(opts.CacheTTL(), cache.WithName("keymaker"))
	m := certs.New(
		c,
		certs.WithProduction(opts.Production),
		certs.WithPaths(opts.CertFile, opts.KeyFile),
	)

	return &Client{
		options:  opts,
		cache:    c,
		certs:    m,
		resolver: appcontext.New(opts, c, m),
		http:     newHTTPClient(opts, m),
	}, nil
}

// newHTTPClient builds the HTTP client used for raptor calls. In production
// it presents the materialized client certificate. The files are read on
// each handshake so a rewrite is picked up by new connections.
func newHTTPClient(opts *options.Client, m *certs.Materializer) *http.Client {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: opts.InsecureTransport, //nolint:gosec // Explicit opt-in through options
		MinVersion:         tls.VersionTLS12,
	}

	if opts.Production {
		tlsConfig.GetClientCertificate = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			cert, err := tls.LoadX509KeyPair(m.CertFile(), m.KeyFile())
			if err != nil {
				// Without materialized files there is no certificate to present
				if errors.Is(err, fs.ErrNotExist) {
					return &tls.Certificate{}, nil
				}
				return nil, fmt.Errorf("loading client certificate: %w", err)
			}
			return &cert, nil
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:errcheck,forcetypeassert
	transport.TLSClientConfig = tlsConfig

	return &http.Client{Transport: transport}
}

// ResolveContext returns the application context sent when source calls
// target. token is the keymaker application context, when empty the
// default from the options is used in production. The boolean is false
// when no context applies to the pair.
func (c *Client) ResolveContext(ctx context.Context, source, target, token string) (string, bool, error) {
	return c.resolver.Resolve(ctx, source, target, token)
}

// CertificatePaths returns the paths of the client certificate and key.
func (c *Client) CertificatePaths() (certFile, keyFile string) {
	return c.certs.CertFile(), c.certs.KeyFile()
}

// Reset drops all cached contexts and the certificate flag. The next call
// goes back to keymaker and rewrites the client certificate.
func (c *Client) Reset(ctx context.Context) {
	clog.FromContext(ctx).Debugf("clearing %d cached keymaker entries", c.cache.Len())
	c.cache.Clear()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.resolver.Close()
	c.http.CloseIdleConnections()
	return nil
}
