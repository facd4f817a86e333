// models/errors.go
package models

import "errors"

var (
	// ErrNotFound indicates the referenced account no longer exists.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicateUser indicates a registration against a taken username.
	ErrDuplicateUser = errors.New("username already taken")

	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrPasswordTooShort indicates a password below MinPasswordLen.
	ErrPasswordTooShort = errors.New("password too short")

	// ErrEmptyInput indicates a blank username or password on registration.
	ErrEmptyInput = errors.New("username and password must not be empty")

	// ErrInvalidOutcome indicates an outcome value other than win or loss.
	ErrInvalidOutcome = errors.New("invalid game outcome")

	// ErrNotAuthenticated indicates a protected operation without a session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotConnected indicates a command sent while the realtime link is down.
	ErrNotConnected = errors.New("not connected")

	// ErrLobbyFull indicates a join against a lobby at capacity.
	ErrLobbyFull = errors.New("lobby is full")
)
