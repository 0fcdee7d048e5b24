package store

import "errors"

// ErrNotFound is returned when something is not found in the store.
var ErrNotFound = errors.New("not found")

// ErrTooLarge is returned when the data being written exceeds the store limit.
var ErrTooLarge = errors.New("payload too large")
