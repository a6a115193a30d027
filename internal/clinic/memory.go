package clinic

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store mirroring the per-hospital guardian phone
// constraint.
type MemoryStore struct {
	mu       sync.RWMutex
	patients map[string]*Patient
	doses    map[string]*Dose
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients: make(map[string]*Patient),
		doses:    make(map[string]*Dose),
	}
}

func (m *MemoryStore) Patients(ctx context.Context) PatientStore { return (*memoryPatients)(m) }
func (m *MemoryStore) Doses(ctx context.Context) DoseStore       { return (*memoryDoses)(m) }

type memoryPatients MemoryStore

func (m *memoryPatients) Create(ctx context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.patients {
		if existing.HospitalID == p.HospitalID && existing.GuardianPhone == p.GuardianPhone {
			return fmt.Errorf("%w: guardian phone already registered", ErrConflict)
		}
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *memoryPatients) Find(ctx context.Context, id string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryPatients) Update(ctx context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.patients {
		if id != p.ID && other.HospitalID == existing.HospitalID && other.GuardianPhone == p.GuardianPhone {
			return fmt.Errorf("%w: guardian phone already registered", ErrConflict)
		}
	}
	cp := *p
	cp.HospitalID = existing.HospitalID
	cp.BirthDate = existing.BirthDate
	cp.CreatedAt = existing.CreatedAt
	m.patients[p.ID] = &cp
	return nil
}

func (m *memoryPatients) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *memoryPatients) ListByHospital(ctx context.Context, hospitalID string) ([]*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Patient
	for _, p := range m.patients {
		if p.HospitalID == hospitalID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

type memoryDoses MemoryStore

func (m *memoryDoses) CreateBatch(ctx context.Context, doses []*Dose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range doses {
		cp := *d
		m.doses[d.ID] = &cp
	}
	return nil
}

func (m *memoryDoses) Find(ctx context.Context, id string) (*Dose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doses[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memoryDoses) ListByPatient(ctx context.Context, patientID string) ([]*Dose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Dose
	for _, d := range m.doses {
		if d.PatientID == patientID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sortDoses(out)
	return out, nil
}

func (m *memoryDoses) ListDueBefore(ctx context.Context, hospitalID string, cutoff time.Time) ([]*Dose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Dose
	for _, d := range m.doses {
		if d.Administered() || !d.DueDate.Before(cutoff) {
			continue
		}
		patient, ok := m.patients[d.PatientID]
		if !ok || patient.HospitalID != hospitalID {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sortDoses(out)
	return out, nil
}

func (m *memoryDoses) MarkAdministered(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doses[id]
	if !ok {
		return ErrNotFound
	}
	when := at
	d.AdministeredAt = &when
	return nil
}

func (m *memoryDoses) DeleteByPatient(ctx context.Context, patientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.doses {
		if d.PatientID == patientID {
			delete(m.doses, id)
		}
	}
	return nil
}

func sortDoses(list []*Dose) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].DueDate.Equal(list[j].DueDate) {
			return list[i].Vaccine < list[j].Vaccine
		}
		return list[i].DueDate.Before(list[j].DueDate)
	})
}
