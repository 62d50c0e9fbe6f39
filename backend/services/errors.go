package services

import "errors"

// Business outcomes returned to controllers. Persistence failures are passed
// through untouched and handled as 500s by the HTTP layer.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyUsed      = errors.New("code already used")
	ErrExpired          = errors.New("code expired")
	ErrUnauthorized     = errors.New("admin access required")
	ErrConflict         = errors.New("payment reference already processed")
	ErrValidation       = errors.New("invalid input")
	ErrNeedsEntitlement = errors.New("entitlement required")
)
