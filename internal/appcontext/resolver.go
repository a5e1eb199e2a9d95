// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package appcontext resolves the application context a source service
// presents to a target service. Resolution loads the keymaker key objects
// of a context token, writes the client certificates out of them and reads
// the matching nonkey. Resolved values are cached per service pair.
package appcontext

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/singleflight"

	"github.com/carabiner-dev/raptor/internal/cache"
	"github.com/carabiner-dev/raptor/internal/certs"
	"github.com/carabiner-dev/raptor/internal/common"
	"github.com/carabiner-dev/raptor/internal/keymaker"
	"github.com/carabiner-dev/raptor/options"
)

// Fetcher loads the keymaker key objects of a token.
type Fetcher func(ctx context.Context, token string) (*keymaker.Client, error)

// Resolver resolves and caches application contexts.
type Resolver struct {
	options *options.Client
	cache   *cache.Cache
	certs   *certs.Materializer
	fetch   Fetcher
	http    *http.Client
	group   singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFetcher replaces the function used to reach keymaker.
func WithFetcher(f Fetcher) Option {
	return func(r *Resolver) {
		r.fetch = f
	}
}

// New returns a resolver caching into c and handing the fetched key objects
// to m before reading the context.
func New(opts *options.Client, c *cache.Cache, m *certs.Materializer, fns ...Option) *Resolver {
	r := &Resolver{
		options: opts,
		cache:   c,
		certs:   m,
		http:    keymaker.NewHTTPClient(opts.InsecureTransport, opts.Timeout),
	}
	r.fetch = func(ctx context.Context, token string) (*keymaker.Client, error) {
		return keymaker.New(
			ctx, token,
			keymaker.WithEndpoint(opts.Endpoint()),
			keymaker.WithHTTPClient(r.http),
		)
	}
	for _, f := range fns {
		f(r)
	}
	return r
}

// Close releases the idle keymaker connections.
func (r *Resolver) Close() {
	r.http.CloseIdleConnections()
}

// CacheKey is the key a resolved context is cached under.
func CacheKey(source, target string) string {
	return fmt.Sprintf("%s_%s_ca", source, target)
}

// Resolve returns the application context source presents to target. The
// boolean is false when there is no context to send: keymaker has no value
// for the pair, or this is not production and no token was supplied.
//
// token is the caller's keymaker application context. When blank, a
// target service is an error, outside production nothing is resolved and
// in production the default context token from the options is used.
func (r *Resolver) Resolve(ctx context.Context, source, target, token string) (string, bool, error) {
	key := CacheKey(source, target)
	if v, ok := r.cache.Get(key); ok {
		value, found := cached(v)
		return value, found, nil
	}

	if strings.TrimSpace(token) == "" {
		if strings.TrimSpace(target) != "" {
			return "", false, fmt.Errorf(
				"%w: a keymaker application context is required to get the application context of %q, "+
					"set %s or remove the target service", common.ErrConfiguration, target, options.EnvVarDefaultContext,
			)
		}
		if !r.options.Production {
			return "", false, nil
		}
		token = r.options.DefaultContextToken
	}

	// Concurrent misses on the same pair and token share one keymaker
	// round trip. The flight outlives the caller that started it, each
	// caller only waits as long as its own context allows.
	flight := key + "/" + keymaker.Fingerprint(token)
	ch := r.group.DoChan(flight, func() (any, error) {
		return r.resolve(context.WithoutCancel(ctx), source, target, token, key)
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		value, found := cached(res.Val)
		return value, found, nil
	}
}

func (r *Resolver) resolve(ctx context.Context, source, target, token, key string) (any, error) {
	// A flight that finished after our cache check already stored the value
	if v, ok := r.cache.Get(key); ok {
		return v, nil
	}

	clog.FromContext(ctx).Debugf(
		"resolving application context %s -> %s (token %s)", source, target, keymaker.Fingerprint(token),
	)

	km, err := r.fetch(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("loading keymaker context: %w", err)
	}

	if err := r.certs.Materialize(ctx, km.Graph()); err != nil {
		return nil, fmt.Errorf("materializing client certificate: %w", err)
	}

	value, found, err := km.NonkeyValue(keymaker.ApplicationContextKey(source, target), false)
	if err != nil {
		return nil, err
	}

	// Misses are cached too, keymaker is not asked again until expiry
	var v any
	if found {
		v = value
	}
	r.cache.Set(key, v)
	return v, nil
}

func cached(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
