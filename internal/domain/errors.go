// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates the request failed input validation.
var ErrValidation = errors.New("validation failed")

// ErrConflict indicates a write conflicted with existing state.
var ErrConflict = errors.New("conflict: resource already exists")

// ErrRemote indicates the assistant service failed or returned an error status.
var ErrRemote = errors.New("assistant service error")

// ErrRunTimeout indicates an assistant run did not reach a terminal status
// within the configured polling window.
var ErrRunTimeout = errors.New("assistant run timed out")

// ErrBadName indicates a stored conversation name does not follow the
// "{prefix} {n}" pattern and cannot be sequenced.
var ErrBadName = errors.New("malformed conversation name")
