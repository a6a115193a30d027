package clinic

import (
	"context"
	"time"
)

// Store describes persistence for patients and their doses. The guardian
// phone's per-hospital uniqueness lives in a store constraint.
type Store interface {
	Patients(ctx context.Context) PatientStore
	Doses(ctx context.Context) DoseStore
}

// PatientStore manages patient records.
type PatientStore interface {
	Create(ctx context.Context, p *Patient) error
	Find(ctx context.Context, id string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id string) error
	ListByHospital(ctx context.Context, hospitalID string) ([]*Patient, error)
}

// DoseStore manages scheduled doses.
type DoseStore interface {
	CreateBatch(ctx context.Context, doses []*Dose) error
	Find(ctx context.Context, id string) (*Dose, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Dose, error)
	ListDueBefore(ctx context.Context, hospitalID string, cutoff time.Time) ([]*Dose, error)
	MarkAdministered(ctx context.Context, id string, at time.Time) error
	DeleteByPatient(ctx context.Context, patientID string) error
}
