// Package clinic tracks hospital patients and their childhood vaccination
// schedules.
package clinic

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the addressed patient or dose does not exist.
	ErrNotFound = errors.New("clinic: not found")

	// ErrConflict indicates a store constraint rejected the write, such as a
	// duplicate guardian phone within a hospital.
	ErrConflict = errors.New("clinic: conflict")

	// ErrInvalidInput indicates the request payload failed validation.
	ErrInvalidInput = errors.New("clinic: invalid input")
)

// Patient is a child registered by one hospital. The guardian phone is unique
// within that hospital so reminders reach one household once.
type Patient struct {
	ID            string    `json:"id"`
	HospitalID    string    `json:"hospital_id"`
	ChildName     string    `json:"child_name"`
	GuardianName  string    `json:"guardian_name"`
	GuardianPhone string    `json:"guardian_phone"`
	BirthDate     time.Time `json:"birth_date"`
	CreatedAt     time.Time `json:"created_at"`
}

// Dose is one scheduled vaccination for one patient.
type Dose struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"patient_id"`
	Vaccine        string     `json:"vaccine"`
	DueDate        time.Time  `json:"due_date"`
	AdministeredAt *time.Time `json:"administered_at,omitempty"`
}

// Administered reports whether the dose has been given.
func (d *Dose) Administered() bool { return d.AdministeredAt != nil }
