package trips

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store mirroring the relational vote
// constraints, so tests exercise the same conflict paths as Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	trips    map[string]*Trip
	votes    map[string]*Vote
	bookings map[string]*Booking
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trips:    make(map[string]*Trip),
		votes:    make(map[string]*Vote),
		bookings: make(map[string]*Booking),
	}
}

func (m *MemoryStore) Trips(ctx context.Context) TripStore       { return (*memoryTrips)(m) }
func (m *MemoryStore) Votes(ctx context.Context) VoteStore       { return (*memoryVotes)(m) }
func (m *MemoryStore) Bookings(ctx context.Context) BookingStore { return (*memoryBookings)(m) }

type memoryTrips MemoryStore

func (m *memoryTrips) Create(ctx context.Context, t *Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.trips[t.ID] = &cp
	return nil
}

func (m *memoryTrips) Find(ctx context.Context, id string) (*Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryTrips) Update(ctx context.Context, t *Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.trips[t.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *t
	cp.AgencyID = existing.AgencyID
	cp.Status = existing.Status
	cp.CreatedAt = existing.CreatedAt
	m.trips[t.ID] = &cp
	return nil
}

func (m *memoryTrips) SetStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	return nil
}

func (m *memoryTrips) Activate(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return false, ErrNotFound
	}
	if t.Status != StatusVoting {
		return false, nil
	}
	t.Status = StatusActivated
	return true, nil
}

func (m *memoryTrips) ListByStatus(ctx context.Context, status string) ([]*Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Trip
	for _, t := range m.trips {
		if t.Status == status {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortTrips(out)
	return out, nil
}

func (m *memoryTrips) ListByAgency(ctx context.Context, agencyID string) ([]*Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Trip
	for _, t := range m.trips {
		if t.AgencyID == agencyID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortTrips(out)
	return out, nil
}

func (m *memoryTrips) ListVotedBy(ctx context.Context, userID string) ([]*Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	voted := make(map[string]bool)
	for _, v := range m.votes {
		if v.UserID == userID {
			voted[v.TripID] = true
		}
	}
	var out []*Trip
	for id := range voted {
		if t, ok := m.trips[id]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortTrips(out)
	return out, nil
}

func (m *memoryTrips) CountByAgency(ctx context.Context, agencyID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, t := range m.trips {
		if t.AgencyID == agencyID {
			count++
		}
	}
	return count, nil
}

func (m *memoryTrips) CountAll(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips), nil
}

func sortTrips(list []*Trip) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

type memoryVotes MemoryStore

func (m *memoryVotes) Cast(ctx context.Context, v *Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.votes {
		if existing.UserID != v.UserID {
			continue
		}
		if existing.TripID == v.TripID {
			return fmt.Errorf("%w: already voted on this trip", ErrConflict)
		}
		if existing.CastOn == v.CastOn {
			return fmt.Errorf("%w: daily vote already spent", ErrConflict)
		}
	}
	cp := *v
	m.votes[v.ID] = &cp
	return nil
}

func (m *memoryVotes) CountByTrip(ctx context.Context, tripID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, v := range m.votes {
		if v.TripID == tripID {
			count++
		}
	}
	return count, nil
}

func (m *memoryVotes) CountByUser(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, v := range m.votes {
		if v.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *memoryVotes) HasVoted(ctx context.Context, userID, tripID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.votes {
		if v.UserID == userID && v.TripID == tripID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryVotes) ListVoterIDs(ctx context.Context, tripID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, v := range m.votes {
		if v.TripID == tripID {
			out = append(out, v.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryVotes) HasVotedOn(ctx context.Context, userID, day string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.votes {
		if v.UserID == userID && v.CastOn == day {
			return true, nil
		}
	}
	return false, nil
}

type memoryBookings MemoryStore

func (m *memoryBookings) Create(ctx context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memoryBookings) Find(ctx context.Context, id string) (*Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memoryBookings) SetStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	return nil
}

func (m *memoryBookings) ListByUser(ctx context.Context, userID string) ([]*Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sortBookings(out)
	return out, nil
}

func (m *memoryBookings) ListByAgency(ctx context.Context, agencyID string) ([]*Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owned := make(map[string]bool)
	for _, t := range m.trips {
		if t.AgencyID == agencyID {
			owned[t.ID] = true
		}
	}
	var out []*Booking
	for _, b := range m.bookings {
		if owned[b.TripID] {
			cp := *b
			out = append(out, &cp)
		}
	}
	sortBookings(out)
	return out, nil
}

func (m *memoryBookings) CountByUser(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, b := range m.bookings {
		if b.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *memoryBookings) CountAll(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookings), nil
}

func sortBookings(list []*Booking) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
