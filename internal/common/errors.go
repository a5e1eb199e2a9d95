// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package common holds the error taxonomy shared by the keymaker, certs and
// appcontext packages. The root raptor package re-exports all of it.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a required argument (a token, a
	// method) is empty or not supported.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfiguration is returned when the setup can't satisfy a request,
	// eg a target service without an application context.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound is returned when a required nonkey is not in keymaker.
	ErrNotFound = errors.New("not found")

	// ErrRemoteService is matched by every RemoteServiceError.
	ErrRemoteService = errors.New("remote service error")

	// ErrTransport is matched by every TransportError.
	ErrTransport = errors.New("transport error")

	// ErrPersistence is matched by every PersistenceError.
	ErrPersistence = errors.New("persistence error")
)

// RemoteServiceError is returned when a service answers with a non-2xx status.
type RemoteServiceError struct {
	Service string
	Status  int
	Body    string
}

func (e *RemoteServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Service, e.Status, e.Body)
}

// Is makes errors.Is(err, ErrRemoteService) true.
func (e *RemoteServiceError) Is(target error) bool {
	return target == ErrRemoteService
}

// TransportError wraps network level failures. When the failing request
// carried a keymaker token, the message has been redacted and Fingerprint
// identifies the token instead.
type TransportError struct {
	Op          string
	Fingerprint string
	Err         error
}

func (e *TransportError) Error() string {
	if e.Fingerprint != "" {
		return fmt.Sprintf("%s (token %s): %v", e.Op, e.Fingerprint, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) true.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// PersistenceError is returned when writing a file to disk fails.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPersistence) true.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
