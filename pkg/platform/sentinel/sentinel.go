package sentinel

import "errors"

// Sentinel errors describe facts about stored resources. Stores return them
// (optionally wrapped) and services translate them into coded domain errors.
//
//   - ErrNotFound: no attempt, window, checkpoint or skip matched
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrExpired: the verification window or attempt is past its deadline
//   - ErrInvalidState: the attempt is in the wrong state for the operation
//   - ErrUnavailable: a backing system (database, vendor, broker) cannot be reached
//
// Validation failures belong in pkg/domain-errors instead.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
