package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rehla.tn/internal/auth"
	"rehla.tn/internal/ids"
)

const castOnLayout = "2006-01-02"

// AgencyDirectory is the slice of the auth store this service needs: trip
// creation checks the owning agency's allowance.
type AgencyDirectory interface {
	Find(ctx context.Context, id string) (*auth.Agency, error)
}

// Service implements the trip marketplace: agencies propose trips, travellers
// vote them into activation, then book seats.
type Service struct {
	store    Store
	agencies AgencyDirectory
	now      func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests of the daily vote rule).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, agencies AgencyDirectory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("trips: store is required")
	}
	if agencies == nil {
		return nil, errors.New("trips: agency directory is required")
	}
	s := &Service{store: store, agencies: agencies, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateTripParams are the fields of a trip proposal.
type CreateTripParams struct {
	Title       string
	Description string
	Destination string
	Price       int64
	StartDate   time.Time
	EndDate     time.Time
	MinVotes    int
}

// CreateTrip opens a new trip in voting state, subject to the agency's trip
// allowance.
func (s *Service) CreateTrip(ctx context.Context, agencyID string, p CreateTripParams) (*Trip, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Destination = strings.TrimSpace(p.Destination)
	if p.Title == "" || p.Destination == "" {
		return nil, fmt.Errorf("%w: title and destination are required", ErrInvalidInput)
	}
	if p.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	if p.MinVotes <= 0 {
		return nil, fmt.Errorf("%w: min_votes must be positive", ErrInvalidInput)
	}
	if !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return nil, fmt.Errorf("%w: end_date precedes start_date", ErrInvalidInput)
	}

	agency, err := s.agencies.Find(ctx, agencyID)
	if err != nil {
		return nil, ErrNotFound
	}
	count, err := s.store.Trips(ctx).CountByAgency(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	if count >= agency.TripLimit {
		return nil, ErrTripLimitReached
	}

	trip := &Trip{
		ID:          ids.New(),
		AgencyID:    agencyID,
		Title:       p.Title,
		Description: strings.TrimSpace(p.Description),
		Destination: p.Destination,
		Price:       p.Price,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		MinVotes:    p.MinVotes,
		Status:      StatusVoting,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Trips(ctx).Create(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// GetTrip loads a trip with its current vote count.
func (s *Service) GetTrip(ctx context.Context, id string) (*TripSummary, error) {
	trip, err := s.store.Trips(ctx).Find(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.store.Votes(ctx).CountByTrip(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TripSummary{Trip: *trip, VoteCount: count}, nil
}

// UpdateTripParams are the agency-editable trip fields.
type UpdateTripParams struct {
	Title       string
	Description string
	Destination string
	Price       int64
	StartDate   time.Time
	EndDate     time.Time
	MinVotes    int
}

// UpdateTrip replaces a trip's editable fields. Ownership is checked by the
// caller against the trip's agency id.
func (s *Service) UpdateTrip(ctx context.Context, id string, p UpdateTripParams) (*Trip, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Destination = strings.TrimSpace(p.Destination)
	if p.Title == "" || p.Destination == "" {
		return nil, fmt.Errorf("%w: title and destination are required", ErrInvalidInput)
	}
	if p.Price < 0 || p.MinVotes <= 0 {
		return nil, fmt.Errorf("%w: price and min_votes must be valid", ErrInvalidInput)
	}
	tripStore := s.store.Trips(ctx)
	trip, err := tripStore.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	trip.Title = p.Title
	trip.Description = strings.TrimSpace(p.Description)
	trip.Destination = p.Destination
	trip.Price = p.Price
	trip.StartDate = p.StartDate
	trip.EndDate = p.EndDate
	trip.MinVotes = p.MinVotes
	if err := tripStore.Update(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// SetTripStatus moves a trip between lifecycle states.
func (s *Service) SetTripStatus(ctx context.Context, id, status string) error {
	switch status {
	case StatusVoting, StatusActivated, StatusCompleted, StatusCancelled:
	default:
		return fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, status)
	}
	return s.store.Trips(ctx).SetStatus(ctx, id, status)
}

// ListVotingTrips returns the open ballot. viewerID may be empty; when set,
// each summary reports whether that traveller already spent today's vote.
func (s *Service) ListVotingTrips(ctx context.Context, viewerID string) ([]TripSummary, error) {
	open, err := s.store.Trips(ctx).ListByStatus(ctx, StatusVoting)
	if err != nil {
		return nil, err
	}
	votes := s.store.Votes(ctx)

	votedToday := false
	if viewerID != "" {
		votedToday, err = votes.HasVotedOn(ctx, viewerID, s.today())
		if err != nil {
			return nil, err
		}
	}

	summaries := make([]TripSummary, 0, len(open))
	for _, trip := range open {
		count, err := votes.CountByTrip(ctx, trip.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, TripSummary{
			Trip:          *trip,
			VoteCount:     count,
			HasVotedToday: votedToday,
		})
	}
	return summaries, nil
}

// ListAgencyTrips returns every trip an agency owns.
func (s *Service) ListAgencyTrips(ctx context.Context, agencyID string) ([]*Trip, error) {
	return s.store.Trips(ctx).ListByAgency(ctx, agencyID)
}

// ListVotedTrips returns the trips a traveller has voted for.
func (s *Service) ListVotedTrips(ctx context.Context, userID string) ([]*Trip, error) {
	return s.store.Trips(ctx).ListVotedBy(ctx, userID)
}

// CastVote spends a traveller's daily vote on a trip. The returned flag
// reports whether this vote pushed the trip over its activation threshold.
//
// Uniqueness rides on the store's constraints: two concurrent casts of the
// same vote yield one success and one ErrConflict.
func (s *Service) CastVote(ctx context.Context, userID, tripID string) (*TripSummary, bool, error) {
	tripStore := s.store.Trips(ctx)
	trip, err := tripStore.Find(ctx, tripID)
	if err != nil {
		return nil, false, err
	}
	if trip.Status != StatusVoting {
		return nil, false, ErrVotingClosed
	}

	voteStore := s.store.Votes(ctx)
	if voted, err := voteStore.HasVoted(ctx, userID, tripID); err != nil {
		return nil, false, err
	} else if voted {
		return nil, false, fmt.Errorf("%w: already voted on this trip", ErrConflict)
	}

	now := s.now().UTC()
	vote := &Vote{
		ID:     ids.New(),
		TripID: tripID,
		UserID: userID,
		CastAt: now,
		CastOn: now.Format(castOnLayout),
	}
	if err := voteStore.Cast(ctx, vote); err != nil {
		return nil, false, err
	}

	count, err := voteStore.CountByTrip(ctx, tripID)
	if err != nil {
		return nil, false, err
	}
	activated := false
	if count >= trip.MinVotes {
		// The conditional flip elects one activator under concurrent
		// threshold-crossing votes; the losers see the new status.
		flipped, err := tripStore.Activate(ctx, tripID)
		if err != nil {
			return nil, false, err
		}
		trip.Status = StatusActivated
		activated = flipped
	}
	return &TripSummary{Trip: *trip, VoteCount: count}, activated, nil
}

// VoterIDs returns the travellers who voted for a trip, used to fan out the
// activation announcement.
func (s *Service) VoterIDs(ctx context.Context, tripID string) ([]string, error) {
	return s.store.Votes(ctx).ListVoterIDs(ctx, tripID)
}

// CreateBooking reserves seats on an activated trip.
func (s *Service) CreateBooking(ctx context.Context, userID, tripID string, seats int) (*Booking, error) {
	if seats <= 0 {
		return nil, fmt.Errorf("%w: seats must be positive", ErrInvalidInput)
	}
	trip, err := s.store.Trips(ctx).Find(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != StatusActivated {
		return nil, ErrNotBookable
	}
	booking := &Booking{
		ID:        ids.New(),
		TripID:    tripID,
		UserID:    userID,
		Seats:     seats,
		Status:    BookingPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Bookings(ctx).Create(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// GetBooking loads a booking.
func (s *Service) GetBooking(ctx context.Context, id string) (*Booking, error) {
	return s.store.Bookings(ctx).Find(ctx, id)
}

// SetBookingStatus moves a booking between states. Ownership (the booking's
// trip must belong to the acting agency) is checked by the caller.
func (s *Service) SetBookingStatus(ctx context.Context, id, status string) error {
	switch status {
	case BookingPending, BookingConfirmed, BookingCancelled:
	default:
		return fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, status)
	}
	return s.store.Bookings(ctx).SetStatus(ctx, id, status)
}

// ListUserBookings returns a traveller's bookings.
func (s *Service) ListUserBookings(ctx context.Context, userID string) ([]*Booking, error) {
	return s.store.Bookings(ctx).ListByUser(ctx, userID)
}

// ListAgencyBookings returns bookings across an agency's trips.
func (s *Service) ListAgencyBookings(ctx context.Context, agencyID string) ([]*Booking, error) {
	return s.store.Bookings(ctx).ListByAgency(ctx, agencyID)
}

// StatsForUser returns a traveller's activity counters.
func (s *Service) StatsForUser(ctx context.Context, userID string) (UserStats, error) {
	votes, err := s.store.Votes(ctx).CountByUser(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}
	bookings, err := s.store.Bookings(ctx).CountByUser(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}
	return UserStats{Votes: votes, Bookings: bookings}, nil
}

// PlatformTotals returns the trip and booking counters for the operator
// dashboard.
func (s *Service) PlatformTotals(ctx context.Context) (PlatformStats, error) {
	tripCount, err := s.store.Trips(ctx).CountAll(ctx)
	if err != nil {
		return PlatformStats{}, err
	}
	bookingCount, err := s.store.Bookings(ctx).CountAll(ctx)
	if err != nil {
		return PlatformStats{}, err
	}
	return PlatformStats{Trips: tripCount, Bookings: bookingCount}, nil
}

func (s *Service) today() string {
	return s.now().UTC().Format(castOnLayout)
}
