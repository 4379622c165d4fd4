package repositories

import "errors"

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("record not found")
