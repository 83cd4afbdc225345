package domain

import "errors"

var (
	// ErrUnknownUser is returned when a sender or recipient has no user record.
	ErrUnknownUser = errors.New("unknown user")

	// ErrCurrentUserNotFound is returned when the caller's own identity has no
	// user record, e.g. a token issued before the user ever connected.
	ErrCurrentUserNotFound = errors.New("current user not found")

	// ErrPersistence is returned when a message could not be stored. The
	// message is not delivered to anyone.
	ErrPersistence = errors.New("message persistence failed")

	// ErrInvalidBody is returned for empty or oversized message bodies.
	ErrInvalidBody = errors.New("invalid message body")

	// ErrInvalidUsername is returned for empty or oversized usernames.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrRegistryInconsistency marks a forward/inverse presence mismatch.
	ErrRegistryInconsistency = errors.New("presence registry inconsistency")
)
