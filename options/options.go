// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package options

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ProductionEndpoint is the keymaker API used in production.
	ProductionEndpoint = "https://keymakerapi.g.paypalinc.com:21358"

	// QAEndpoint is the keymaker API used everywhere else.
	QAEndpoint = "https://keymakerapi-vip.qa.paypal.com"
)

// Client options set
type Client struct {
	// Production selects the production keymaker endpoint and enables
	// client certificate materialization and mutual TLS.
	Production bool `yaml:"production"`

	// DefaultContextToken is the keymaker application context used when a
	// call does not bring its own.
	DefaultContextToken string `yaml:"default_context_token"`

	// CacheTTLDays is the lifetime of resolved application contexts and of
	// the client certificate files.
	CacheTTLDays int `yaml:"cache_ttl_days"`

	// KeymakerEndpoint overrides the endpoint derived from Production.
	KeymakerEndpoint string `yaml:"keymaker_endpoint"`

	// InsecureTransport disables TLS verification on the keymaker and
	// raptor calls.
	InsecureTransport bool `yaml:"insecure_transport"`

	CertFile string        `yaml:"cert_file"`
	KeyFile  string        `yaml:"key_file"`
	Timeout  time.Duration `yaml:"timeout"`
	Debug    bool          `yaml:"debug"`
}

// Default returns a new set of the default client options.
func Default() *Client {
	return &Client{
		Production:          false,
		DefaultContextToken: "",
		CacheTTLDays:        7,
		KeymakerEndpoint:    "", // Empty = derive from Production
		InsecureTransport:   true,
		CertFile:            "client.crt",
		KeyFile:             "client.key",
		Timeout:             30 * time.Second,
		Debug:               false,
	}
}

// FromEnv returns the default options with the environment applied.
func FromEnv() (*Client, error) {
	opts := Default()
	if err := opts.ApplyEnv(); err != nil {
		return nil, err
	}
	return opts, nil
}

// LoadFile reads options from a YAML file on top of the defaults and then
// applies the environment, which takes precedence over the file.
func LoadFile(path string) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading options file: %w", err)
	}

	opts := Default()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parsing options file %s: %w", path, err)
	}

	if err := opts.ApplyEnv(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Endpoint returns the keymaker base URL to use.
func (o *Client) Endpoint() string {
	if o.KeymakerEndpoint != "" {
		return o.KeymakerEndpoint
	}
	if o.Production {
		return ProductionEndpoint
	}
	return QAEndpoint
}

// CacheTTL returns CacheTTLDays as a duration.
func (o *Client) CacheTTL() time.Duration {
	return time.Duration(o.CacheTTLDays) * 24 * time.Hour
}

// Validate checks the options are usable.
func (o *Client) Validate() error {
	var errs []error
	if o.CacheTTLDays <= 0 {
		errs = append(errs, fmt.Errorf("cache TTL must be at least one day, got %d", o.CacheTTLDays))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", o.Timeout))
	}
	if o.CertFile == "" || o.KeyFile == "" {
		errs = append(errs, errors.New("certificate and key paths must be set"))
	}
	return errors.Join(errs...)
}
