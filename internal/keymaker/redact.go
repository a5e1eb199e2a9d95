// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package keymaker

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const redactedToken = "<token>"

// Fingerprint returns a short, stable identifier for a token so that logs
// and errors can refer to it without including it.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

// Redact replaces every occurrence of token in msg.
func Redact(msg, token string) string {
	if token == "" {
		return msg
	}
	return strings.ReplaceAll(msg, token, redactedToken)
}

// redactError returns err untouched unless its message contains the token.
// In that case the chain is dropped as any error in it could print it.
func redactError(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(Redact(err.Error(), token))
}
