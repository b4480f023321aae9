package audit

import "errors"

// Sentinel kinds for audit errors.
var (
	ErrEmptyUserID     = errors.New("empty user id")
	ErrInvalidSchedule = errors.New("invalid audit schedule")
	ErrAlreadyStarted  = errors.New("audit scheduler already started")
)
