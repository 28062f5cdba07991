package repository

import "errors"

var (
	// ErrSessionNotFound indicates the session id is unknown or was swept
	ErrSessionNotFound = errors.New("session not found")

	// ErrRepositoryUnavailable indicates the repository was closed
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
