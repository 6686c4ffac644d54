// Copyright 2025 Certen Protocol
//
// Work pool errors

package workpool

import "errors"

var (
	ErrNilGenerateRequest = errors.New("workpool: generate request cannot be nil")
	ErrNoThreads          = errors.New("workpool: thread count must be positive")
	ErrAlreadyStopped     = errors.New("workpool: pool already stopped")
)
