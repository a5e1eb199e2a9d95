// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package certs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockDir takes an exclusive advisory lock on dir so that worker processes
// sharing a working directory don't interleave their certificate writes.
// The returned function releases the lock.
func lockDir(dir string) (func(), error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dir, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil { //nolint:gosec // fd fits in an int
		f.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("locking %s: %w", dir, err)
	}

	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN) //nolint:errcheck,gosec
		f.Close()                                  //nolint:errcheck,gosec
	}, nil
}
