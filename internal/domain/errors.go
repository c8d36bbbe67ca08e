package domain

import "errors"

var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("option not found")
	ErrOptionMismatch = errors.New("option does not belong to this poll")
	ErrPollInactive   = errors.New("poll is not active")
	ErrInvalidDates   = errors.New("start date must be before end date")
)
