package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrBackendUnavailable = errors.New("backend unavailable")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionNotFound    = errors.New("session not found")

	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrCannotFollowSelf     = errors.New("cannot follow yourself")
	ErrUserBlocked          = errors.New("user is blocked")

	ErrEmergencyNotFound = errors.New("emergency not found")
	ErrInvalidTransition = errors.New("invalid emergency status transition")
	ErrAlreadyAssigned   = errors.New("emergency already has a helper")
	ErrHelperBusy        = errors.New("helper already has an active emergency")
	ErrHelperOffDuty     = errors.New("helper is not available")
	ErrNotRequester      = errors.New("only the requester can change the emergency")
	ErrCannotHelpSelf    = errors.New("cannot respond to your own emergency")
)
