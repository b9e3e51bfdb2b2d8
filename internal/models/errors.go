package models

import "errors"

// Recoverable failures surfaced to callers as typed errors. The transport
// layer maps them to protocol responses; core code matches with errors.Is.
var (
	ErrNotAMember         = errors.New("not a channel member")
	ErrNotOwner           = errors.New("not the message author")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrInvalidCallState   = errors.New("invalid call state transition")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
)
