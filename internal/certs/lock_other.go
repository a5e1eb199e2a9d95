// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package certs

// lockDir is a no-op on platforms without flock, writes are only
// serialized within the process.
func lockDir(string) (func(), error) {
	return func() {}, nil
}
