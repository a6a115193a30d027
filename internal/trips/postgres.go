package trips

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrUniqueViolation = "23505"

// PGStore is the Postgres-backed Store. The vote table carries two unique
// indexes, (user_id, trip_id) and (user_id, cast_on), so both voting rules
// hold across processes.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Trips(ctx context.Context) TripStore       { return (*pgTrips)(s) }
func (s *PGStore) Votes(ctx context.Context) VoteStore       { return (*pgVotes)(s) }
func (s *PGStore) Bookings(ctx context.Context) BookingStore { return (*pgBookings)(s) }

const tripColumns = `id, agency_id, title, description, destination, price, start_date, end_date, min_votes, status, created_at`

type pgTrips PGStore

func (s *pgTrips) Create(ctx context.Context, t *Trip) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into trips (`+tripColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.AgencyID, t.Title, t.Description, t.Destination, t.Price, t.StartDate, t.EndDate, t.MinVotes, t.Status, t.CreatedAt)
	return err
}

func (s *pgTrips) Find(ctx context.Context, id string) (*Trip, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `select `+tripColumns+` from trips where id = $1`, id)
	return scanTrip(row)
}

func (s *pgTrips) Update(ctx context.Context, t *Trip) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update trips
		set title = $2, description = $3, destination = $4, price = $5,
		    start_date = $6, end_date = $7, min_votes = $8
		where id = $1
	`, t.ID, t.Title, t.Description, t.Destination, t.Price, t.StartDate, t.EndDate, t.MinVotes)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgTrips) SetStatus(ctx context.Context, id, status string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `update trips set status = $2 where id = $1`, id, status)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgTrips) Activate(ctx context.Context, id string) (bool, error) {
	if s.db == nil {
		return false, errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update trips set status = $2 where id = $1 and status = $3
	`, id, StatusActivated, StatusVoting)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *pgTrips) ListByStatus(ctx context.Context, status string) ([]*Trip, error) {
	return s.list(ctx, `select `+tripColumns+` from trips where status = $1 order by created_at desc`, status)
}

func (s *pgTrips) ListByAgency(ctx context.Context, agencyID string) ([]*Trip, error) {
	return s.list(ctx, `select `+tripColumns+` from trips where agency_id = $1 order by created_at desc`, agencyID)
}

func (s *pgTrips) ListVotedBy(ctx context.Context, userID string) ([]*Trip, error) {
	return s.list(ctx, `
		select t.id, t.agency_id, t.title, t.description, t.destination, t.price,
		       t.start_date, t.end_date, t.min_votes, t.status, t.created_at
		from trips t
		join votes v on v.trip_id = t.id
		where v.user_id = $1
		order by t.created_at desc
	`, userID)
}

func (s *pgTrips) list(ctx context.Context, query string, args ...any) ([]*Trip, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.AgencyID, &t.Title, &t.Description, &t.Destination, &t.Price,
			&t.StartDate, &t.EndDate, &t.MinVotes, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

func (s *pgTrips) CountByAgency(ctx context.Context, agencyID string) (int, error) {
	return (*PGStore)(s).count(ctx, `select count(*) from trips where agency_id = $1`, agencyID)
}

func (s *pgTrips) CountAll(ctx context.Context) (int, error) {
	return (*PGStore)(s).count(ctx, `select count(*) from trips`)
}

func scanTrip(row *sql.Row) (*Trip, error) {
	var t Trip
	err := row.Scan(&t.ID, &t.AgencyID, &t.Title, &t.Description, &t.Destination, &t.Price,
		&t.StartDate, &t.EndDate, &t.MinVotes, &t.Status, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type pgVotes PGStore

func (s *pgVotes) Cast(ctx context.Context, v *Vote) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into votes (id, trip_id, user_id, cast_at, cast_on)
		values ($1, $2, $3, $4, $5)
	`, v.ID, v.TripID, v.UserID, v.CastAt, v.CastOn)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		if pgErr.ConstraintName == "votes_user_day_key" {
			return fmt.Errorf("%w: daily vote already spent", ErrConflict)
		}
		return fmt.Errorf("%w: already voted on this trip", ErrConflict)
	}
	return err
}

func (s *pgVotes) CountByTrip(ctx context.Context, tripID string) (int, error) {
	return (*PGStore)(s).count(ctx, `select count(*) from votes where trip_id = $1`, tripID)
}

func (s *pgVotes) CountByUser(ctx context.Context, userID string) (int, error) {
	return (*PGStore)(s).count(ctx, `select count(*) from votes where user_id = $1`, userID)
}

func (s *pgVotes) HasVoted(ctx context.Context, userID, tripID string) (bool, error) {
	return (*PGStore)(s).exists(ctx, `select exists(select 1 from votes where user_id = $1 and trip_id = $2)`, userID, tripID)
}

func (s *pgVotes) ListVoterIDs(ctx context.Context, tripID string) ([]string, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `select user_id from votes where trip_id = $1 order by cast_at`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *pgVotes) HasVotedOn(ctx context.Context, userID, day string) (bool, error) {
	return (*PGStore)(s).exists(ctx, `select exists(select 1 from votes where user_id = $1 and cast_on = $2)`, userID, day)
}

type pgBookings PGStore

func (s *pgBookings) Create(ctx context.Context, b *Booking) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into bookings (id, trip_id, user_id, seats, status, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.TripID, b.UserID, b.Seats, b.Status, b.CreatedAt)
	return err
}

func (s *pgBookings) Find(ctx context.Context, id string) (*Booking, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var b Booking
	err := s.db.QueryRowContext(ctx, `
		select id, trip_id, user_id, seats, status, created_at
		from bookings where id = $1
	`, id).Scan(&b.ID, &b.TripID, &b.UserID, &b.Seats, &b.Status, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *pgBookings) SetStatus(ctx context.Context, id, status string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `update bookings set status = $2 where id = $1`, id, status)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgBookings) ListByUser(ctx context.Context, userID string) ([]*Booking, error) {
	return s.list(ctx, `
		select id, trip_id, user_id, seats, status, created_at
		from bookings where user_id = $1
		order by created_at desc
	`, userID)
}

func (s *pgBookings) ListByAgency(ctx context.Context, agencyID string) ([]*Booking, error) {
	return s.list(ctx, `
		select b.id, b.trip_id, b.user_id, b.seats, b.status, b.created_at
		from bookings b
		join trips t on t.id = b.trip_id
		where t.agency_id = $1
		order by b.created_at desc
	`, agencyID)
}

func (s *pgBookings) list(ctx context.Context, query string, args ...any) ([]*Booking, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.TripID, &b.UserID, &b.Seats, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &b)
	}
	return result, rows.Err()
}

func (s *pgBookings) CountByUser(ctx context.Context, userID string) (int, error) {
	return (*PGStore)(s).count(ctx, `select count(*) from bookings where user_id = $1`, userID)
}

func (s *pgBookings) CountAll(ctx context.Context) (int, error) {
	return (*PGStore)(s).count(ctx, `select count(*) from bookings`)
}

func (s *PGStore) count(ctx context.Context, query string, args ...any) (int, error) {
	if s.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PGStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	if s.db == nil {
		return false, errors.New("database connection unavailable")
	}
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func requireRowAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
