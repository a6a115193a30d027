package auth

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store. It mirrors the relational constraints
// (unique phone, code, email) so tests exercise the same conflict paths the
// Postgres store produces.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*User
	agencies  map[string]*Agency
	admins    map[string]*Admin
	hospitals map[string]*Hospital
	audit     []*AuditEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*User),
		agencies:  make(map[string]*Agency),
		admins:    make(map[string]*Admin),
		hospitals: make(map[string]*Hospital),
	}
}

func (m *MemoryStore) Users(ctx context.Context) UserStore         { return (*memoryUsers)(m) }
func (m *MemoryStore) Agencies(ctx context.Context) AgencyStore    { return (*memoryAgencies)(m) }
func (m *MemoryStore) Admins(ctx context.Context) AdminStore       { return (*memoryAdmins)(m) }
func (m *MemoryStore) Hospitals(ctx context.Context) HospitalStore { return (*memoryHospitals)(m) }
func (m *MemoryStore) Audit(ctx context.Context) AuditStore        { return (*memoryAudit)(m) }

type memoryUsers MemoryStore

func (m *memoryUsers) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Phone == u.Phone {
			return fmt.Errorf("%w: phone already registered", ErrConflict)
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memoryUsers) Find(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) FindByPhone(ctx context.Context, phone string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryUsers) Update(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.users {
		if id != u.ID && other.Phone == u.Phone {
			return fmt.Errorf("%w: phone already registered", ErrConflict)
		}
	}
	cp := *u
	cp.CreatedAt = existing.CreatedAt
	m.users[u.ID] = &cp
	return nil
}

func (m *memoryUsers) List(ctx context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryUsers) SetStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	return nil
}

type memoryAgencies MemoryStore

func (m *memoryAgencies) Create(ctx context.Context, a *Agency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.agencies {
		if existing.Code == a.Code {
			return fmt.Errorf("%w: access code already allocated", ErrConflict)
		}
	}
	cp := *a
	m.agencies[a.ID] = &cp
	return nil
}

func (m *memoryAgencies) Find(ctx context.Context, id string) (*Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agencies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAgencies) FindByCode(ctx context.Context, code string) (*Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.agencies {
		if a.Code == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryAgencies) Update(ctx context.Context, a *Agency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.agencies[a.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *a
	cp.Code = existing.Code
	cp.CreatedAt = existing.CreatedAt
	m.agencies[a.ID] = &cp
	return nil
}

func (m *memoryAgencies) List(ctx context.Context) ([]*Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Agency, 0, len(m.agencies))
	for _, a := range m.agencies {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryAgencies) SetCode(ctx context.Context, id, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agencies[id]
	if !ok {
		return ErrNotFound
	}
	for otherID, other := range m.agencies {
		if otherID != id && other.Code == code {
			return fmt.Errorf("%w: access code already allocated", ErrConflict)
		}
	}
	a.Code = code
	return nil
}

func (m *memoryAgencies) SetStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agencies[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return nil
}

func (m *memoryAgencies) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agencies[id]; !ok {
		return ErrNotFound
	}
	delete(m.agencies, id)
	return nil
}

type memoryAdmins MemoryStore

func (m *memoryAdmins) Create(ctx context.Context, a *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.admins {
		if existing.Email == a.Email {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
	}
	cp := *a
	m.admins[a.ID] = &cp
	return nil
}

func (m *memoryAdmins) Find(ctx context.Context, id string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAdmins) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type memoryHospitals MemoryStore

func (m *memoryHospitals) Create(ctx context.Context, h *Hospital) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.hospitals {
		if existing.Email == h.Email {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
	}
	cp := *h
	m.hospitals[h.ID] = &cp
	return nil
}

func (m *memoryHospitals) Find(ctx context.Context, id string) (*Hospital, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hospitals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *memoryHospitals) FindByEmail(ctx context.Context, email string) (*Hospital, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.hospitals {
		if h.Email == email {
			cp := *h
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type memoryAudit MemoryStore

func (m *memoryAudit) Append(ctx context.Context, entry *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.audit = append(m.audit, &cp)
	return nil
}
