package clinic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrUniqueViolation = "23505"

// PGStore is the Postgres-backed Store. The patients table carries a unique
// index on (hospital_id, guardian_phone).
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Patients(ctx context.Context) PatientStore { return (*pgPatients)(s) }
func (s *PGStore) Doses(ctx context.Context) DoseStore       { return (*pgDoses)(s) }

type pgPatients PGStore

func (s *pgPatients) Create(ctx context.Context, p *Patient) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into patients (id, hospital_id, child_name, guardian_name, guardian_phone, birth_date, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.HospitalID, p.ChildName, p.GuardianName, p.GuardianPhone, p.BirthDate, p.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: guardian phone already registered", ErrConflict)
	}
	return err
}

func (s *pgPatients) Find(ctx context.Context, id string) (*Patient, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var p Patient
	err := s.db.QueryRowContext(ctx, `
		select id, hospital_id, child_name, guardian_name, guardian_phone, birth_date, created_at
		from patients where id = $1
	`, id).Scan(&p.ID, &p.HospitalID, &p.ChildName, &p.GuardianName, &p.GuardianPhone, &p.BirthDate, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *pgPatients) Update(ctx context.Context, p *Patient) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update patients
		set child_name = $2, guardian_name = $3, guardian_phone = $4
		where id = $1
	`, p.ID, p.ChildName, p.GuardianName, p.GuardianPhone)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: guardian phone already registered", ErrConflict)
	}
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgPatients) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from patients where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgPatients) ListByHospital(ctx context.Context, hospitalID string) ([]*Patient, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, hospital_id, child_name, guardian_name, guardian_phone, birth_date, created_at
		from patients
		where hospital_id = $1
		order by created_at desc
	`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.HospitalID, &p.ChildName, &p.GuardianName, &p.GuardianPhone, &p.BirthDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

type pgDoses PGStore

func (s *pgDoses) CreateBatch(ctx context.Context, doses []*Dose) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range doses {
		if _, err := tx.ExecContext(ctx, `
			insert into doses (id, patient_id, vaccine, due_date, administered_at)
			values ($1, $2, $3, $4, $5)
		`, d.ID, d.PatientID, d.Vaccine, d.DueDate, d.AdministeredAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *pgDoses) Find(ctx context.Context, id string) (*Dose, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var d Dose
	err := s.db.QueryRowContext(ctx, `
		select id, patient_id, vaccine, due_date, administered_at
		from doses where id = $1
	`, id).Scan(&d.ID, &d.PatientID, &d.Vaccine, &d.DueDate, &d.AdministeredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *pgDoses) ListByPatient(ctx context.Context, patientID string) ([]*Dose, error) {
	return s.list(ctx, `
		select id, patient_id, vaccine, due_date, administered_at
		from doses
		where patient_id = $1
		order by due_date, vaccine
	`, patientID)
}

func (s *pgDoses) ListDueBefore(ctx context.Context, hospitalID string, cutoff time.Time) ([]*Dose, error) {
	return s.list(ctx, `
		select d.id, d.patient_id, d.vaccine, d.due_date, d.administered_at
		from doses d
		join patients p on p.id = d.patient_id
		where p.hospital_id = $1 and d.administered_at is null and d.due_date < $2
		order by d.due_date, d.vaccine
	`, hospitalID, cutoff)
}

func (s *pgDoses) list(ctx context.Context, query string, args ...any) ([]*Dose, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Dose
	for rows.Next() {
		var d Dose
		if err := rows.Scan(&d.ID, &d.PatientID, &d.Vaccine, &d.DueDate, &d.AdministeredAt); err != nil {
			return nil, err
		}
		result = append(result, &d)
	}
	return result, rows.Err()
}

func (s *pgDoses) MarkAdministered(ctx context.Context, id string, at time.Time) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `update doses set administered_at = $2 where id = $1`, id, at)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgDoses) DeleteByPatient(ctx context.Context, patientID string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `delete from doses where patient_id = $1`, patientID)
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
