package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rehla.tn/internal/ids"
)

// Service registers patients and maintains their vaccination calendars. All
// reads and writes are scoped to the owning hospital by the caller.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("clinic: store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterPatientParams are the fields of a patient registration.
type RegisterPatientParams struct {
	ChildName     string
	GuardianName  string
	GuardianPhone string
	BirthDate     time.Time
}

// RegisterPatient creates a patient and expands the national schedule into
// dose records in one go.
func (s *Service) RegisterPatient(ctx context.Context, hospitalID string, p RegisterPatientParams) (*Patient, []*Dose, error) {
	p.ChildName = strings.TrimSpace(p.ChildName)
	p.GuardianName = strings.TrimSpace(p.GuardianName)
	p.GuardianPhone = strings.TrimSpace(p.GuardianPhone)
	if p.ChildName == "" || p.GuardianName == "" || p.GuardianPhone == "" {
		return nil, nil, fmt.Errorf("%w: child_name, guardian_name and guardian_phone are required", ErrInvalidInput)
	}
	if p.BirthDate.IsZero() || p.BirthDate.After(s.now()) {
		return nil, nil, fmt.Errorf("%w: birth_date must be in the past", ErrInvalidInput)
	}

	patient := &Patient{
		ID:            ids.New(),
		HospitalID:    hospitalID,
		ChildName:     p.ChildName,
		GuardianName:  p.GuardianName,
		GuardianPhone: p.GuardianPhone,
		BirthDate:     p.BirthDate,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.Patients(ctx).Create(ctx, patient); err != nil {
		return nil, nil, err
	}

	scheduled := Schedule(patient.BirthDate)
	doses := make([]*Dose, 0, len(scheduled))
	for _, entry := range scheduled {
		doses = append(doses, &Dose{
			ID:        ids.New(),
			PatientID: patient.ID,
			Vaccine:   entry.Vaccine,
			DueDate:   entry.Due,
		})
	}
	if err := s.store.Doses(ctx).CreateBatch(ctx, doses); err != nil {
		return nil, nil, err
	}
	return patient, doses, nil
}

// GetPatient loads a patient record.
func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	return s.store.Patients(ctx).Find(ctx, id)
}

// PatientUpdate carries a full replacement of a patient's editable fields.
type PatientUpdate struct {
	ChildName     string
	GuardianName  string
	GuardianPhone string
}

// UpdatePatient replaces a patient's contact fields. The birth date, and with
// it the schedule, is immutable after registration.
func (s *Service) UpdatePatient(ctx context.Context, id string, upd PatientUpdate) (*Patient, error) {
	upd.ChildName = strings.TrimSpace(upd.ChildName)
	upd.GuardianName = strings.TrimSpace(upd.GuardianName)
	upd.GuardianPhone = strings.TrimSpace(upd.GuardianPhone)
	if upd.ChildName == "" || upd.GuardianName == "" || upd.GuardianPhone == "" {
		return nil, fmt.Errorf("%w: child_name, guardian_name and guardian_phone are required", ErrInvalidInput)
	}
	patients := s.store.Patients(ctx)
	patient, err := patients.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	patient.ChildName = upd.ChildName
	patient.GuardianName = upd.GuardianName
	patient.GuardianPhone = upd.GuardianPhone
	if err := patients.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// DeletePatient removes a patient and their dose records.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	if err := s.store.Doses(ctx).DeleteByPatient(ctx, id); err != nil {
		return err
	}
	return s.store.Patients(ctx).Delete(ctx, id)
}

// ListPatients returns a hospital's patient roster.
func (s *Service) ListPatients(ctx context.Context, hospitalID string) ([]*Patient, error) {
	return s.store.Patients(ctx).ListByHospital(ctx, hospitalID)
}

// PatientCalendar returns a patient's dose calendar.
func (s *Service) PatientCalendar(ctx context.Context, patientID string) ([]*Dose, error) {
	if _, err := s.store.Patients(ctx).Find(ctx, patientID); err != nil {
		return nil, err
	}
	return s.store.Doses(ctx).ListByPatient(ctx, patientID)
}

// GetDose loads one dose record.
func (s *Service) GetDose(ctx context.Context, id string) (*Dose, error) {
	return s.store.Doses(ctx).Find(ctx, id)
}

// MarkAdministered records that a dose was given.
func (s *Service) MarkAdministered(ctx context.Context, doseID string) error {
	return s.store.Doses(ctx).MarkAdministered(ctx, doseID, s.now().UTC())
}

// DueSoon returns a hospital's unadministered doses falling due within the
// window, the feed behind reminder outreach.
func (s *Service) DueSoon(ctx context.Context, hospitalID string, window time.Duration) ([]*Dose, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", ErrInvalidInput)
	}
	cutoff := s.now().UTC().Add(window)
	return s.store.Doses(ctx).ListDueBefore(ctx, hospitalID, cutoff)
}
