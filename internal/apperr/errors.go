// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Invariant violations on the open note's snippet list.
	ErrNoContent         = errors.New("no note content loaded")
	ErrIndexOutOfRange   = errors.New("snippet index out of range")
	ErrProtectedSnippet  = errors.New("first snippet cannot be removed")
	ErrInvalidSnippetSet = errors.New("invalid snippet list")
)
