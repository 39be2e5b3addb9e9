package models

import "errors"

// ErrNotFound indicates a document or chunk does not exist in the store.
// Callers check it with errors.Is and surface an empty result rather
// than an error.
var ErrNotFound = errors.New("not found")
