// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package raptor

import "github.com/carabiner-dev/raptor/internal/common"

// Errors returned by the client. Use errors.Is to match the sentinels and
// errors.As to get the typed errors.
var (
	ErrInvalidArgument = common.ErrInvalidArgument
	ErrConfiguration   = common.ErrConfiguration
	ErrNotFound        = common.ErrNotFound
	ErrRemoteService   = common.ErrRemoteService
	ErrTransport       = common.ErrTransport
	ErrPersistence     = common.ErrPersistence
)

type (
	RemoteServiceError = common.RemoteServiceError
	TransportError     = common.TransportError
	PersistenceError   = common.PersistenceError
)
