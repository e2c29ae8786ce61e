package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: no record for the key (e.g. no lock held for an instructor)
//   - ErrConflict: the record is owned by someone else
//   - ErrExpired: the record outlived its retention window
//   - ErrUnavailable: backing store or remote device temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
