package trips

import "errors"

var (
	// ErrNotFound indicates the addressed trip, vote or booking does not exist.
	ErrNotFound = errors.New("trips: not found")

	// ErrConflict indicates a store constraint rejected the write, such as a
	// repeated vote.
	ErrConflict = errors.New("trips: conflict")

	// ErrInvalidInput indicates the request payload failed validation.
	ErrInvalidInput = errors.New("trips: invalid input")

	// ErrVotingClosed indicates the trip is no longer accepting votes.
	ErrVotingClosed = errors.New("trips: voting closed")

	// ErrNotBookable indicates the trip has not been activated for booking.
	ErrNotBookable = errors.New("trips: trip not bookable")

	// ErrTripLimitReached indicates the agency exhausted its trip allowance.
	ErrTripLimitReached = errors.New("trips: agency trip limit reached")
)
