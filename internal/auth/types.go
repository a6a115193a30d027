package auth

import (
	"strings"
	"time"
)

// Role is the closed set of principal kinds. A principal's identifier is
// unique within its role's namespace, never globally.
type Role string

const (
	RoleUser     Role = "user"
	RoleAgency   Role = "agency"
	RoleAdmin    Role = "admin"
	RoleHospital Role = "hospital"
)

// ParseRole normalizes a role string and reports whether it names a known role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleUser:
		return RoleUser, true
	case RoleAgency:
		return RoleAgency, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleHospital:
		return RoleHospital, true
	default:
		return "", false
	}
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is a traveller voting on and booking trips.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	State        string    `json:"state"`
	PasswordHash string    `json:"-"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName returns the name carried in issued tokens.
func (u *User) DisplayName() string { return u.Name }

// Agency is a trip organizer. Its access code is a bearer secret: looking the
// code up is the whole authentication, so it never serializes with the profile.
// Admin provisioning responses return it explicitly.
type Agency struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"-"`
	State       string    `json:"state"`
	City        string    `json:"city"`
	Phone       string    `json:"phone"`
	Description string    `json:"description,omitempty"`
	TripLimit   int       `json:"trip_limit"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Admin is a platform operator.
type Admin struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Hospital manages patients and their vaccination schedules.
type Hospital struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditEntry records an authentication event. Writes are fire-and-forget:
// a failed append never fails the operation it describes.
type AuditEntry struct {
	ID          string
	OccurredAt  time.Time
	PrincipalID string
	Role        Role
	Action      string
	SourceIP    string
	UserAgent   string
	Metadata    map[string]string
}
