package shared

import "errors"

var (
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates the referenced entity or relation does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference indicates a foreign key target is missing.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrForbidden indicates an authority check failed.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput indicates malformed or missing request data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable indicates a backend I/O failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUnauthorized indicates a missing or unverifiable credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
