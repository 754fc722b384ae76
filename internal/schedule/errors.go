package schedule

import "errors"

var (
	ErrInvalidTime      = errors.New("invalid time")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrIncompatibleDays = errors.New("incompatible days")
)
