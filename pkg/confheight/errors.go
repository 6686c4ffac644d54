// Copyright 2025 Certen Protocol

package confheight

import "errors"

var (
	// ErrBlockNotFound is returned when Add references a hash the store
	// has no record of.
	ErrBlockNotFound = errors.New("confheight: block not found")
	// ErrAlreadyRunning is returned by Start on a processor already
	// processing.
	ErrAlreadyRunning = errors.New("confheight: already running")
)
