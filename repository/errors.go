package repository

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped) so
// services can translate them into workflow errors.
var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a versioned update found a different version than expected.
	ErrConflict = errors.New("version conflict")
	// ErrDuplicate means a unique key already exists.
	ErrDuplicate = errors.New("duplicate key")
)
