// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package raptor

import (
	"net/http"

	"github.com/carabiner-dev/raptor/options"
)

const (
	// ApplicationContextHeader carries the resolved application context.
	ApplicationContextHeader = "PayPal-Application-Context"

	// CorrelationIDHeader is generated on calls that don't carry one.
	CorrelationIDHeader = "Correlation-Id"
)

// PassdownHeaders are the headers of an inbound request that are forwarded
// on the raptor calls made while serving it.
var PassdownHeaders = []string{
	CorrelationIDHeader,
	"X-PayPal-Security-Context",
	"PayPal-Client-Metadata-Id",
	"PayPal-Client-Ipaddress",
	"PayPal-Visitor-Id",
	"PayPal-Remote-Address",
	"PayPal-Entry-Point",
	"X-PayPal-FPTI",
	"PayPal-Routing-Metadata",
}

// WithPassdownHeaders copies the passdown headers present in inbound to
// the call headers.
func WithPassdownHeaders(inbound http.Header) options.CallOptsFn {
	return func(c *options.Call) error {
		for _, h := range PassdownHeaders {
			if v := inbound.Get(h); v != "" {
				if c.Headers == nil {
					c.Headers = http.Header{}
				}
				c.Headers.Set(h, v)
			}
		}
		return nil
	}
}
