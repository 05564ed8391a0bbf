package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is the umbrella for both login failures.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotFound      = fmt.Errorf("%w: email not found", ErrInvalidCredentials)
	ErrWrongPassword      = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)

	ErrMissingEmail     = errors.New("email is required")
	ErrDuplicateEmail   = errors.New("email already in use")
	ErrWeakPassword     = fmt.Errorf("password must have at least %d characters", minPasswordLength)
	ErrNotAuthenticated = errors.New("not logged in")
	ErrProfileRequired  = errors.New("no active profile")
	ErrUnknownProfile   = errors.New("unknown profile")

	ErrMovieNotFound   = errors.New("catalog entry not found")
	ErrUploadFailed    = errors.New("could not process the video for the community")
	ErrUnplayable      = errors.New("entry has no playable media")
	ErrInvalidLink     = errors.New("link must be an http(s) URL")
	ErrInvalidMetadata = errors.New("invalid metadata")

	ErrOracleUnavailable = errors.New("metadata assistant unavailable")
)
