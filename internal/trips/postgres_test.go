package trips

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func TestPGVotesCastMapsDailyConstraint(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`insert into votes`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "votes_user_day_key"})

	err := store.Votes(context.Background()).Cast(context.Background(), &Vote{
		ID: "v1", TripID: "t1", UserID: "u1", CastAt: time.Now().UTC(), CastOn: "2026-09-01",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestPGVotesCastMapsTripConstraint(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`insert into votes`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "votes_user_trip_key"})

	err := store.Votes(context.Background()).Cast(context.Background(), &Vote{
		ID: "v1", TripID: "t1", UserID: "u1", CastAt: time.Now().UTC(), CastOn: "2026-09-01",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestPGTripsFindMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`select .+ from trips where id`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Trips(context.Background()).Find(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestPGTripsListByAgency(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "agency_id", "title", "description", "destination", "price", "start_date", "end_date", "min_votes", "status", "created_at"}).
		AddRow("t1", "ag1", "Douz desert weekend", "", "Douz", int64(250000), created, created, 10, "voting", created)
	mock.ExpectQuery(`select .+ from trips where agency_id`).
		WithArgs("ag1").
		WillReturnRows(rows)

	list, err := store.Trips(context.Background()).ListByAgency(context.Background(), "ag1")
	if err != nil {
		t.Fatalf("ListByAgency: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Douz desert weekend" || list[0].Price != 250000 {
		t.Fatalf("unexpected trips: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGTripsActivateConditional(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`update trips set status = \$2 where id = \$1 and status = \$3`).
		WithArgs("t1", StatusActivated, StatusVoting).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`update trips set status = \$2 where id = \$1 and status = \$3`).
		WithArgs("t1", StatusActivated, StatusVoting).
		WillReturnResult(sqlmock.NewResult(0, 0))

	trips := store.Trips(context.Background())
	flipped, err := trips.Activate(context.Background(), "t1")
	if err != nil || !flipped {
		t.Fatalf("first flip: flipped=%v err=%v", flipped, err)
	}
	// Already activated: the conditional update matches no row.
	flipped, err = trips.Activate(context.Background(), "t1")
	if err != nil || flipped {
		t.Fatalf("second flip: flipped=%v err=%v", flipped, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGBookingsSetStatusMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`update bookings set status`).
		WithArgs("ghost", BookingConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Bookings(context.Background()).SetStatus(context.Background(), "ghost", BookingConfirmed)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
