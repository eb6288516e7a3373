package gamification

import "errors"

var (
	// ErrAssignmentNotFound is returned for ids that do not exist or belong to another user.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrAlreadyCompleted is returned when completing a completed assignment.
	ErrAlreadyCompleted = errors.New("assignment already completed")
	// ErrInvalidTransition is returned when leaving a terminal state.
	ErrInvalidTransition = errors.New("invalid assignment transition")
	// ErrNoMissionsAvailable is returned when the active catalog is empty.
	ErrNoMissionsAvailable = errors.New("no missions available")
	// ErrUserNotFound is returned by account hooks for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrBadgeNotFound is returned when granting a badge that is not in the catalog.
	ErrBadgeNotFound = errors.New("badge not found")
)
