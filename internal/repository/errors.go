// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as handlers to distinguish between different failure
// scenarios. For example, ErrNotFound indicates that a referenced
// entity is absent (detected by a zero affected-row count after a
// write or a missing row on read), while ErrCustomerInactive signals
// that a customer cannot receive new work.
package repository

import "errors"

// ErrNotFound is returned when the targeted row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when creating a user with a username
// that is already taken. Handlers translate this into HTTP 409.
var ErrUsernameExists = errors.New("username already exists")

// ErrNameExists is returned when creating a package whose name is
// already used by an active package. Handlers translate this into
// HTTP 400 as a validation failure.
var ErrNameExists = errors.New("package name already exists")

// ErrCustomerInactive signals that an operation references a customer
// that does not exist or has been deactivated. Handlers translate this
// into HTTP 400.
var ErrCustomerInactive = errors.New("customer missing or inactive")
