package domain

import "errors"

var (
	ErrInvalidCapacity   = errors.New("bus: capacity must be > 0")
	ErrInvalidHighCount  = errors.New("bus: high priority count must be >= 0")
	ErrAlreadyConfigured = errors.New("bus: arbiter already configured")
	ErrInvalidTask       = errors.New("bus: invalid task")
	ErrInvalidPlan       = errors.New("bus: invalid plan")
)
