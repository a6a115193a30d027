package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrUniqueViolation = "23505"

// PGStore is the Postgres-backed Store. Uniqueness constraints on phone,
// access code and email live in the schema; violations surface as ErrConflict.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(ctx context.Context) UserStore         { return (*pgUsers)(s) }
func (s *PGStore) Agencies(ctx context.Context) AgencyStore    { return (*pgAgencies)(s) }
func (s *PGStore) Admins(ctx context.Context) AdminStore       { return (*pgAdmins)(s) }
func (s *PGStore) Hospitals(ctx context.Context) HospitalStore { return (*pgHospitals)(s) }
func (s *PGStore) Audit(ctx context.Context) AuditStore        { return (*pgAudit)(s) }

type pgUsers PGStore

func (s *pgUsers) Create(ctx context.Context, u *User) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, name, last_name, phone, email, state, password_hash, status, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Name, u.LastName, u.Phone, u.Email, u.State, u.PasswordHash, u.Status, u.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: phone already registered", ErrConflict)
	}
	return err
}

func (s *pgUsers) Find(ctx context.Context, id string) (*User, error) {
	return s.scanOne(ctx, `where id = $1`, id)
}

func (s *pgUsers) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return s.scanOne(ctx, `where phone = $1`, phone)
}

func (s *pgUsers) scanOne(ctx context.Context, where string, arg any) (*User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var u User
	err := s.db.QueryRowContext(ctx, `
		select id, name, last_name, phone, email, state, password_hash, status, created_at
		from users `+where, arg).Scan(
		&u.ID, &u.Name, &u.LastName, &u.Phone, &u.Email, &u.State, &u.PasswordHash, &u.Status, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *pgUsers) Update(ctx context.Context, u *User) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update users
		set name = $2, last_name = $3, phone = $4, email = $5, state = $6
		where id = $1
	`, u.ID, u.Name, u.LastName, u.Phone, u.Email, u.State)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: phone already registered", ErrConflict)
	}
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgUsers) List(ctx context.Context) ([]*User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, name, last_name, phone, email, state, password_hash, status, created_at
		from users
		order by created_at desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.LastName, &u.Phone, &u.Email, &u.State, &u.PasswordHash, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &u)
	}
	return result, rows.Err()
}

func (s *pgUsers) SetStatus(ctx context.Context, id, status string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `update users set status = $2 where id = $1`, id, status)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

type pgAgencies PGStore

func (s *pgAgencies) Create(ctx context.Context, a *Agency) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into agencies (id, name, code, state, city, phone, description, trip_limit, status, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.Name, a.Code, a.State, a.City, a.Phone, a.Description, a.TripLimit, a.Status, a.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: access code already allocated", ErrConflict)
	}
	return err
}

func (s *pgAgencies) Find(ctx context.Context, id string) (*Agency, error) {
	return s.scanOne(ctx, `where id = $1`, id)
}

func (s *pgAgencies) FindByCode(ctx context.Context, code string) (*Agency, error) {
	return s.scanOne(ctx, `where code = $1`, code)
}

func (s *pgAgencies) scanOne(ctx context.Context, where string, arg any) (*Agency, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var a Agency
	err := s.db.QueryRowContext(ctx, `
		select id, name, code, state, city, phone, description, trip_limit, status, created_at
		from agencies `+where, arg).Scan(
		&a.ID, &a.Name, &a.Code, &a.State, &a.City, &a.Phone, &a.Description, &a.TripLimit, &a.Status, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *pgAgencies) Update(ctx context.Context, a *Agency) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update agencies
		set name = $2, state = $3, city = $4, phone = $5, description = $6, trip_limit = $7, status = $8
		where id = $1
	`, a.ID, a.Name, a.State, a.City, a.Phone, a.Description, a.TripLimit, a.Status)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgAgencies) List(ctx context.Context) ([]*Agency, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, name, code, state, city, phone, description, trip_limit, status, created_at
		from agencies
		order by created_at desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Agency
	for rows.Next() {
		var a Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.Code, &a.State, &a.City, &a.Phone, &a.Description, &a.TripLimit, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

func (s *pgAgencies) SetCode(ctx context.Context, id, code string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `update agencies set code = $2 where id = $1`, id, code)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: access code already allocated", ErrConflict)
	}
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgAgencies) SetStatus(ctx context.Context, id, status string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `update agencies set status = $2 where id = $1`, id, status)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgAgencies) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from agencies where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

type pgAdmins PGStore

func (s *pgAdmins) Create(ctx context.Context, a *Admin) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into admins (id, name, email, password_hash, status, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.Name, a.Email, a.PasswordHash, a.Status, a.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: email already registered", ErrConflict)
	}
	return err
}

func (s *pgAdmins) Find(ctx context.Context, id string) (*Admin, error) {
	return s.scanOne(ctx, `where id = $1`, id)
}

func (s *pgAdmins) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	return s.scanOne(ctx, `where email = $1`, email)
}

func (s *pgAdmins) scanOne(ctx context.Context, where string, arg any) (*Admin, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var a Admin
	err := s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, status, created_at
		from admins `+where, arg).Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Status, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type pgHospitals PGStore

func (s *pgHospitals) Create(ctx context.Context, h *Hospital) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into hospitals (id, name, email, password_hash, phone, address, status, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, h.Name, h.Email, h.PasswordHash, h.Phone, h.Address, h.Status, h.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: email already registered", ErrConflict)
	}
	return err
}

func (s *pgHospitals) Find(ctx context.Context, id string) (*Hospital, error) {
	return s.scanOne(ctx, `where id = $1`, id)
}

func (s *pgHospitals) FindByEmail(ctx context.Context, email string) (*Hospital, error) {
	return s.scanOne(ctx, `where email = $1`, email)
}

func (s *pgHospitals) scanOne(ctx context.Context, where string, arg any) (*Hospital, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var h Hospital
	err := s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, phone, address, status, created_at
		from hospitals `+where, arg).Scan(
		&h.ID, &h.Name, &h.Email, &h.PasswordHash, &h.Phone, &h.Address, &h.Status, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

type pgAudit PGStore

func (s *pgAudit) Append(ctx context.Context, entry *AuditEntry) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	metaJSON := []byte("{}")
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metaJSON = raw
	}
	_, err := s.db.ExecContext(ctx, `
		insert into auth_audit (id, occurred_at, principal_id, role, action, source_ip, user_agent, metadata)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.OccurredAt, entry.PrincipalID, string(entry.Role), entry.Action, entry.SourceIP, entry.UserAgent, metaJSON)
	return err
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
