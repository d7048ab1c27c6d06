package domain

import "errors"

// ErrBlobNotFound is returned by blob stores when a key has no object.
var ErrBlobNotFound = errors.New("blob not found")
