// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package options

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by ApplyEnv
const (
	EnvVarProfile           = "CURRENT_PROFILE"
	EnvVarDefaultContext    = "DEFAULT_KM_APPLICATION_CONTEXT"
	EnvVarCacheTTLDays      = "KEYMAKER_CACHE_TIMEOUT_IN_DAYS"
	EnvVarKeymakerEndpoint  = "RAPTOR_KEYMAKER_ENDPOINT"
	EnvVarInsecureTransport = "RAPTOR_INSECURE_TRANSPORT"
	EnvVarCertFile          = "RAPTOR_CERT_FILE"
	EnvVarKeyFile           = "RAPTOR_KEY_FILE"
	EnvVarTimeout           = "RAPTOR_TIMEOUT"
	EnvVarDebug             = "RAPTOR_DEBUG"
	EnvVarConfig            = "RAPTOR_CONFIG"
)

// productionProfile is the CURRENT_PROFILE value that turns on production.
const productionProfile = "prod"

// ApplyEnv overrides the options with the environment variables that are
// set. Invalid values return an error instead of being ignored.
func (o *Client) ApplyEnv() error {
	if profile, ok := os.LookupEnv(EnvVarProfile); ok {
		o.Production = strings.EqualFold(strings.TrimSpace(profile), productionProfile)
	}
	if token := os.Getenv(EnvVarDefaultContext); token != "" {
		o.DefaultContextToken = token
	}
	if days := os.Getenv(EnvVarCacheTTLDays); days != "" {
		d, err := strconv.Atoi(strings.TrimSpace(days))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvVarCacheTTLDays, days, err)
		}
		o.CacheTTLDays = d
	}
	if endpoint := os.Getenv(EnvVarKeymakerEndpoint); endpoint != "" {
		o.KeymakerEndpoint = endpoint
	}
	if insecure := os.Getenv(EnvVarInsecureTransport); insecure != "" {
		b, err := parseBool(insecure)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvVarInsecureTransport, insecure, err)
		}
		o.InsecureTransport = b
	}
	if path := os.Getenv(EnvVarCertFile); path != "" {
		o.CertFile = path
	}
	if path := os.Getenv(EnvVarKeyFile); path != "" {
		o.KeyFile = path
	}
	if timeout := os.Getenv(EnvVarTimeout); timeout != "" {
		t, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvVarTimeout, timeout, err)
		}
		o.Timeout = t
	}
	if debug := os.Getenv(EnvVarDebug); debug != "" {
		b, err := parseBool(debug)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvVarDebug, debug, err)
		}
		o.Debug = b
	}
	return nil
}

// parseBool accepts true/1/yes/on and false/0/no/off
func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", value)
	}
}
