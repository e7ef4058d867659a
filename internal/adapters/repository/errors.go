package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateID     = errors.New("record id already exists")
	ErrVersionConflict = errors.New("record changed since read")
	ErrAlreadyRanked   = errors.New("competitor already on ladder")
	ErrInvalidLadder   = errors.New("entries violate the ladder invariant")
)
