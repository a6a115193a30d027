package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
// Uniqueness (one phone per user, one code per agency, one email per admin or
// hospital) is enforced by the store's own constraints, never by in-process
// coordination: several processes may share the store.
type Store interface {
	Users(ctx context.Context) UserStore
	Agencies(ctx context.Context) AgencyStore
	Admins(ctx context.Context) AdminStore
	Hospitals(ctx context.Context) HospitalStore
	Audit(ctx context.Context) AuditStore
}

// UserStore manages traveller accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context) ([]*User, error)
	SetStatus(ctx context.Context, id, status string) error
}

// AgencyStore manages agency accounts and their bearer access codes.
type AgencyStore interface {
	Create(ctx context.Context, a *Agency) error
	Find(ctx context.Context, id string) (*Agency, error)
	FindByCode(ctx context.Context, code string) (*Agency, error)
	Update(ctx context.Context, a *Agency) error
	List(ctx context.Context) ([]*Agency, error)
	SetCode(ctx context.Context, id, code string) error
	SetStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

// AdminStore manages operator accounts.
type AdminStore interface {
	Create(ctx context.Context, a *Admin) error
	Find(ctx context.Context, id string) (*Admin, error)
	FindByEmail(ctx context.Context, email string) (*Admin, error)
}

// HospitalStore manages hospital accounts.
type HospitalStore interface {
	Create(ctx context.Context, h *Hospital) error
	Find(ctx context.Context, id string) (*Hospital, error)
	FindByEmail(ctx context.Context, email string) (*Hospital, error)
}

// AuditStore appends immutable authentication events.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
}
