// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package raptor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(
	`(?i)^(https?://)?(www\.)?([a-z0-9.-]+)(\.[a-z]{2,})?(:\d+)?(/\S*)?$`,
)

// EnsureURL adds http:// to s when it has no http or https scheme and
// checks the result looks like a URL.
func EnsureURL(s string) (string, error) {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "http://" + s
	}
	if !urlRegex.MatchString(s) {
		return "", fmt.Errorf("%w: invalid URL: %s", ErrInvalidArgument, s)
	}
	return s, nil
}

// AddParams merges params into the query string of rawURL. Existing keys
// are replaced.
func AddParams(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: parsing URL: %w", ErrInvalidArgument, err)
	}

	if len(params) == 0 {
		return u.String(), nil
	}

	query := u.Query()
	for k, v := range params {
		query.Set(k, v)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}
