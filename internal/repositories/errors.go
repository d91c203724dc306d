package repositories

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")

	// ErrAlreadyApplied is returned when a chain log was already folded into a campaign.
	ErrAlreadyApplied = errors.New("log already applied")
)
