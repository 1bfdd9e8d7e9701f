package videos

import "errors"

// Messages are shown to end users as-is.
var (
	ErrProfileNotFound = errors.New("Profile not found")
	ErrVideoNotFound   = errors.New("Video not found")
	ErrUnauthorized    = errors.New("Unauthorized")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrStatusChanged means another writer moved the record out of the status the update was computed from.
	ErrStatusChanged = errors.New("video status changed concurrently")
)
