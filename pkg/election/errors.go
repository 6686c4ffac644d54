// Copyright 2025 Certen Protocol

package election

import "errors"

var (
	// ErrRootNotFound is returned when a caller references a qualified
	// root that has no live election.
	ErrRootNotFound = errors.New("election: no live election for root")
	// ErrCandidateNotFound is returned when a caller references a
	// candidate hash that is not part of an election.
	ErrCandidateNotFound = errors.New("election: hash is not a candidate")
)
