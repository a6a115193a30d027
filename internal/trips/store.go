package trips

import "context"

// Store describes persistence for trips, votes and bookings. Vote uniqueness
// (one vote per user per trip, one vote per user per UTC day) is enforced by
// store constraints so concurrent casts resolve to exactly one winner.
type Store interface {
	Trips(ctx context.Context) TripStore
	Votes(ctx context.Context) VoteStore
	Bookings(ctx context.Context) BookingStore
}

// TripStore manages trip records.
type TripStore interface {
	Create(ctx context.Context, t *Trip) error
	Find(ctx context.Context, id string) (*Trip, error)
	Update(ctx context.Context, t *Trip) error
	SetStatus(ctx context.Context, id, status string) error
	// Activate flips a voting trip to activated and reports whether this
	// call performed the flip. Conditional on the current status, so
	// concurrent threshold-crossing votes elect exactly one activator.
	Activate(ctx context.Context, id string) (bool, error)
	ListByStatus(ctx context.Context, status string) ([]*Trip, error)
	ListByAgency(ctx context.Context, agencyID string) ([]*Trip, error)
	ListVotedBy(ctx context.Context, userID string) ([]*Trip, error)
	CountByAgency(ctx context.Context, agencyID string) (int, error)
	CountAll(ctx context.Context) (int, error)
}

// VoteStore manages votes. Cast returns ErrConflict when either uniqueness
// rule is violated.
type VoteStore interface {
	Cast(ctx context.Context, v *Vote) error
	CountByTrip(ctx context.Context, tripID string) (int, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	HasVoted(ctx context.Context, userID, tripID string) (bool, error)
	HasVotedOn(ctx context.Context, userID, day string) (bool, error)
	ListVoterIDs(ctx context.Context, tripID string) ([]string, error)
}

// BookingStore manages bookings.
type BookingStore interface {
	Create(ctx context.Context, b *Booking) error
	Find(ctx context.Context, id string) (*Booking, error)
	SetStatus(ctx context.Context, id, status string) error
	ListByUser(ctx context.Context, userID string) ([]*Booking, error)
	ListByAgency(ctx context.Context, agencyID string) ([]*Booking, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountAll(ctx context.Context) (int, error)
}
