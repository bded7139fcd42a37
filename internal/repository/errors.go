// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific errors.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested row does not exist. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when an insert or update violates a unique
// constraint (duplicate login, email or role name). Handlers should
// translate this into an HTTP 400 response, not a 500.
var ErrAlreadyExists = errors.New("already exists")

// isDuplicate reports whether the error is a MySQL duplicate-key violation
// (error 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
