package classification

import "errors"

// Sentinel kinds for classification errors.
var (
	ErrEmptyUserID = errors.New("empty user id")
)
