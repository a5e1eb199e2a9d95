// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package raptor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/carabiner-dev/raptor/internal/metrics"
	"github.com/carabiner-dev/raptor/options"
)

const maxErrorBody = 4096

// Get calls url with GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, url string, out any, funcs ...options.CallOptsFn) error {
	return c.Call(ctx, http.MethodGet, url, out, funcs...)
}

// Post sends the call body JSON encoded and decodes the response into out.
func (c *Client) Post(ctx context.Context, url string, out any, funcs ...options.CallOptsFn) error {
	return c.Call(ctx, http.MethodPost, url, out, funcs...)
}

// Put sends the call body JSON encoded and decodes the response into out.
func (c *Client) Put(ctx context.Context, url string, out any, funcs ...options.CallOptsFn) error {
	return c.Call(ctx, http.MethodPut, url, out, funcs...)
}

// Call sends a request to a raptor service. The application context for
// the source and target services of the call is resolved first and sent
// in the PayPal-Application-Context header. If out is not nil, the JSON
// response body is decoded into it.
func (c *Client) Call(ctx context.Context, method, url string, out any, funcs ...options.CallOptsFn) (err error) {
	method = strings.ToUpper(method)
	defer func() { metrics.RecordCall(method, err) }()

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return fmt.Errorf("%w: raptor call with unknown request method: %s", ErrInvalidArgument, method)
	}

	call := &options.Call{
		Timeout: c.options.Timeout,
		Headers: http.Header{},
	}
	for _, fn := range funcs {
		if err := fn(call); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	}

	url, err = EnsureURL(url)
	if err != nil {
		return err
	}
	url, err = AddParams(url, call.Query)
	if err != nil {
		return err
	}

	appContext, found, err := c.ResolveContext(ctx, call.SourceService, call.TargetService, call.AppContext)
	if err != nil {
		return fmt.Errorf("resolving application context: %w", err)
	}

	req, err := c.newRequest(ctx, method, url, call)
	if err != nil {
		return err
	}
	if found {
		req.Header.Set(ApplicationContextHeader, appContext)
	}

	ctx, cancel := context.WithTimeout(ctx, call.Timeout)
	defer cancel()
	req = req.WithContext(ctx)

	clog.FromContext(ctx).Debugf("raptor %s %s (application context: %v)", method, url, found)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "calling " + url, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck
		return &RemoteServiceError{
			Service: "raptor",
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		return nil
	}
	// An empty body leaves out untouched
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &TransportError{Op: "decoding response of " + url, Err: err}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, call *options.Call) (*http.Request, error) {
	var body io.Reader
	if method != http.MethodGet {
		payload := call.Body
		if payload == nil {
			payload = map[string]any{}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding request body: %w", ErrInvalidArgument, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrInvalidArgument, err)
	}

	for k, v := range call.Headers {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get(CorrelationIDHeader) == "" {
		req.Header.Set(CorrelationIDHeader, uuid.NewString())
	}
	return req, nil
}
