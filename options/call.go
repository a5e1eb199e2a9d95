// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package options

import (
	"errors"
	"net/http"
	"time"
)

// Call options for a single raptor request
type Call struct {
	Timeout       time.Duration
	Query         map[string]string
	Headers       http.Header
	Body          any
	SourceService string
	TargetService string

	// AppContext is the keymaker application context token used to resolve
	// the PayPal-Application-Context header of this call.
	AppContext string
}

// CallOptsFn is a function that configures a Call
type CallOptsFn func(*Call) error

// WithTimeout overrides the client timeout for the call
func WithTimeout(d time.Duration) CallOptsFn {
	return func(c *Call) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		c.Timeout = d
		return nil
	}
}

// WithQuery adds query parameters to the call URL
func WithQuery(params map[string]string) CallOptsFn {
	return func(c *Call) error {
		if c.Query == nil {
			c.Query = map[string]string{}
		}
		for k, v := range params {
			c.Query[k] = v
		}
		return nil
	}
}

// WithHeader sets a request header
func WithHeader(name, value string) CallOptsFn {
	return func(c *Call) error {
		if c.Headers == nil {
			c.Headers = http.Header{}
		}
		c.Headers.Set(name, value)
		return nil
	}
}

// WithBody sets the value sent JSON encoded on post and put calls
func WithBody(body any) CallOptsFn {
	return func(c *Call) error {
		c.Body = body
		return nil
	}
}

// WithServices sets the source and target services used to look up the
// application context
func WithServices(source, target string) CallOptsFn {
	return func(c *Call) error {
		c.SourceService = source
		c.TargetService = target
		return nil
	}
}

// WithAppContext sets the keymaker application context token for the call
func WithAppContext(token string) CallOptsFn {
	return func(c *Call) error {
		c.AppContext = token
		return nil
	}
}
