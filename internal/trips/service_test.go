package trips

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"rehla.tn/internal/auth"
)

type fakeAgencies map[string]*auth.Agency

func (f fakeAgencies) Find(ctx context.Context, id string) (*auth.Agency, error) {
	a, ok := f[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return a, nil
}

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryStore, fakeAgencies) {
	t.Helper()
	store := NewMemoryStore()
	agencies := fakeAgencies{
		"ag1": {ID: "ag1", Name: "Sahara Tours", TripLimit: 2, Status: auth.StatusActive},
	}
	svc, err := NewService(store, agencies, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store, agencies
}

func mustCreateTrip(t *testing.T, svc *Service, agencyID string, minVotes int) *Trip {
	t.Helper()
	trip, err := svc.CreateTrip(context.Background(), agencyID, CreateTripParams{
		Title:       "Douz desert weekend",
		Destination: "Douz",
		Price:       250_000,
		StartDate:   time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC),
		MinVotes:    minVotes,
	})
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	return trip
}

func TestCreateTripEnforcesAgencyLimit(t *testing.T) {
	svc, _, _ := newTestService(t)

	mustCreateTrip(t, svc, "ag1", 3)
	mustCreateTrip(t, svc, "ag1", 3)
	if _, err := svc.CreateTrip(context.Background(), "ag1", CreateTripParams{
		Title: "One too many", Destination: "Tabarka", MinVotes: 3,
	}); !errors.Is(err, ErrTripLimitReached) {
		t.Fatalf("want ErrTripLimitReached, got %v", err)
	}
}

func TestCreateTripUnknownAgency(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.CreateTrip(context.Background(), "ghost", CreateTripParams{
		Title: "T", Destination: "D", MinVotes: 1,
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCastVoteOncePerTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	trip := mustCreateTrip(t, svc, "ag1", 5)
	ctx := context.Background()

	if _, _, err := svc.CastVote(ctx, "u1", trip.ID); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if _, _, err := svc.CastVote(ctx, "u1", trip.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("repeat vote: want ErrConflict, got %v", err)
	}
}

func TestCastVoteOncePerDay(t *testing.T) {
	day1 := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	now := day1
	svc, _, _ := newTestService(t, WithClock(func() time.Time { return now }))
	first := mustCreateTrip(t, svc, "ag1", 5)
	second := mustCreateTrip(t, svc, "ag1", 5)
	ctx := context.Background()

	if _, _, err := svc.CastVote(ctx, "u1", first.ID); err != nil {
		t.Fatalf("vote on first trip: %v", err)
	}
	// Same day, different trip: still blocked.
	if _, _, err := svc.CastVote(ctx, "u1", second.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("second vote same day: want ErrConflict, got %v", err)
	}

	// Next UTC day the budget resets.
	now = day1.Add(24 * time.Hour)
	if _, _, err := svc.CastVote(ctx, "u1", second.ID); err != nil {
		t.Fatalf("vote next day: %v", err)
	}
}

func TestCastVoteActivatesAtThreshold(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	now := base
	svc, _, _ := newTestService(t, WithClock(func() time.Time { return now }))
	trip := mustCreateTrip(t, svc, "ag1", 2)
	ctx := context.Background()

	summary, activated, err := svc.CastVote(ctx, "u1", trip.ID)
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if activated || summary.Status != StatusVoting || summary.VoteCount != 1 {
		t.Fatalf("below threshold: activated=%v status=%s count=%d", activated, summary.Status, summary.VoteCount)
	}

	summary, activated, err = svc.CastVote(ctx, "u2", trip.ID)
	if err != nil {
		t.Fatalf("second vote: %v", err)
	}
	if !activated || summary.Status != StatusActivated || summary.VoteCount != 2 {
		t.Fatalf("at threshold: activated=%v status=%s count=%d", activated, summary.Status, summary.VoteCount)
	}

	// The ballot is closed now.
	if _, _, err := svc.CastVote(ctx, "u3", trip.ID); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("vote on activated trip: want ErrVotingClosed, got %v", err)
	}
}

func TestConcurrentVotesOneWinner(t *testing.T) {
	svc, _, _ := newTestService(t)
	trip := mustCreateTrip(t, svc, "ag1", 100)
	ctx := context.Background()

	const attempts = 8
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, _, err := svc.CastVote(ctx, "u1", trip.ID)
			errs <- err
		}()
	}

	var ok, conflict int
	for i := 0; i < attempts; i++ {
		switch err := <-errs; {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != attempts-1 {
		t.Fatalf("want exactly one winner, got ok=%d conflict=%d", ok, conflict)
	}
}

func TestConcurrentThresholdVotesActivateOnce(t *testing.T) {
	svc, _, _ := newTestService(t)
	trip := mustCreateTrip(t, svc, "ag1", 1)
	ctx := context.Background()

	// Every vote crosses the threshold; only one caller may flip the trip
	// and report the activation.
	const voters = 6
	results := make(chan bool, voters)
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		go func(i int) {
			_, activated, err := svc.CastVote(ctx, fmt.Sprintf("u%d", i), trip.ID)
			results <- activated
			errs <- err
		}(i)
	}

	var activations int
	for i := 0; i < voters; i++ {
		if <-results {
			activations++
		}
		if err := <-errs; err != nil && !errors.Is(err, ErrVotingClosed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if activations != 1 {
		t.Fatalf("want exactly one activation report, got %d", activations)
	}

	summary, err := svc.GetTrip(ctx, trip.ID)
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if summary.Status != StatusActivated {
		t.Fatalf("trip status: %s", summary.Status)
	}
}

func TestActivateFlipsVotingTripOnce(t *testing.T) {
	svc, store, _ := newTestService(t)
	trip := mustCreateTrip(t, svc, "ag1", 3)
	ctx := context.Background()

	flipped, err := store.Trips(ctx).Activate(ctx, trip.ID)
	if err != nil || !flipped {
		t.Fatalf("first flip: flipped=%v err=%v", flipped, err)
	}
	flipped, err = store.Trips(ctx).Activate(ctx, trip.ID)
	if err != nil || flipped {
		t.Fatalf("second flip: flipped=%v err=%v", flipped, err)
	}
	if _, err := store.Trips(ctx).Activate(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing trip: want ErrNotFound, got %v", err)
	}
}

func TestListVotingTripsReportsDailyBudget(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(t, WithClock(func() time.Time { return base }))
	trip := mustCreateTrip(t, svc, "ag1", 5)
	ctx := context.Background()

	open, err := svc.ListVotingTrips(ctx, "u1")
	if err != nil {
		t.Fatalf("ListVotingTrips: %v", err)
	}
	if len(open) != 1 || open[0].HasVotedToday {
		t.Fatalf("before voting: %+v", open)
	}

	if _, _, err := svc.CastVote(ctx, "u1", trip.ID); err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	open, err = svc.ListVotingTrips(ctx, "u1")
	if err != nil {
		t.Fatalf("ListVotingTrips: %v", err)
	}
	if len(open) != 1 || !open[0].HasVotedToday || open[0].VoteCount != 1 {
		t.Fatalf("after voting: %+v", open)
	}

	// Anonymous view carries counts but no viewer state.
	open, err = svc.ListVotingTrips(ctx, "")
	if err != nil {
		t.Fatalf("ListVotingTrips: %v", err)
	}
	if open[0].HasVotedToday {
		t.Fatal("anonymous viewer should not report a spent vote")
	}
}

func TestBookingLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	trip := mustCreateTrip(t, svc, "ag1", 1)
	ctx := context.Background()

	// Not bookable while voting.
	if _, err := svc.CreateBooking(ctx, "u1", trip.ID, 2); !errors.Is(err, ErrNotBookable) {
		t.Fatalf("booking voting trip: want ErrNotBookable, got %v", err)
	}

	if _, _, err := svc.CastVote(ctx, "u1", trip.ID); err != nil {
		t.Fatalf("CastVote: %v", err)
	}

	booking, err := svc.CreateBooking(ctx, "u1", trip.ID, 2)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if booking.Status != BookingPending || booking.Seats != 2 {
		t.Fatalf("unexpected booking: %+v", booking)
	}

	if err := svc.SetBookingStatus(ctx, booking.ID, BookingConfirmed); err != nil {
		t.Fatalf("SetBookingStatus: %v", err)
	}
	got, err := svc.GetBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if got.Status != BookingConfirmed {
		t.Fatalf("status: got %s want %s", got.Status, BookingConfirmed)
	}

	if err := svc.SetBookingStatus(ctx, booking.ID, "teleported"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad status: want ErrInvalidInput, got %v", err)
	}
}

func TestStatsForUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	trip := mustCreateTrip(t, svc, "ag1", 1)
	ctx := context.Background()

	if _, _, err := svc.CastVote(ctx, "u1", trip.ID); err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	if _, err := svc.CreateBooking(ctx, "u1", trip.ID, 1); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	stats, err := svc.StatsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("StatsForUser: %v", err)
	}
	if stats.Votes != 1 || stats.Bookings != 1 {
		t.Fatalf("stats: %+v", stats)
	}

	empty, err := svc.StatsForUser(ctx, "u2")
	if err != nil {
		t.Fatalf("StatsForUser: %v", err)
	}
	if empty.Votes != 0 || empty.Bookings != 0 {
		t.Fatalf("empty stats: %+v", empty)
	}
}
