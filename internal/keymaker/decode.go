// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package keymaker

import (
	"encoding/base64"
	"unicode/utf8"
)

// IsBase64 reports whether s is canonical standard base64, that is, if
// decoding and encoding it again yields the same string. The empty string
// is not considered base64.
func IsBase64(s string) bool {
	if s == "" {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	return base64.StdEncoding.EncodeToString(raw) == s
}

// DecodeValue peels base64 layers off s until the result is not base64
// anymore. Decoding also stops when a layer does not decode to valid UTF-8
// text, as that layer is the value itself.
func DecodeValue(s string) string {
	for IsBase64(s) {
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil || !utf8.Valid(raw) {
			break
		}
		next := string(raw)
		// A decode of non-empty input always shrinks it, this only guards
		// against looping on a fixed point.
		if next == s {
			break
		}
		s = next
	}
	return s
}
