package domain

import "errors"

// ErrNotFound is returned when a catalog lookup matches nothing.
var ErrNotFound = errors.New("not found")
