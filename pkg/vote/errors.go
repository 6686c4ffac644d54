// Copyright 2025 Certen Protocol

package vote

import "errors"

var (
	ErrTooManyHashes = errors.New("vote: payload exceeds max hash count")
	ErrQueueFull     = errors.New("vote: processor queue is full")
)
