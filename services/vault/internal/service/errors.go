package service

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("caller is not the vault owner")
	ErrGuardianNotAuthorized = errors.New("guardian not accepted for this vault")
	ErrCycleClosed           = errors.New("attestation cycle closed")
	ErrTerminalState         = errors.New("vault is in a terminal state")
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnavailable           = errors.New("vault store unavailable")
)
