package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"rehla.tn/internal/ids"
	"rehla.tn/internal/token"
)

const (
	defaultAccessTTL   = 24 * time.Hour
	defaultHospitalTTL = 7 * 24 * time.Hour

	accessCodeDigits = 10
)

// Service authenticates principals against the store and issues tokens.
// It owns no ambient state: store, codec and clock are all injected.
type Service struct {
	store       Store
	codec       *token.Codec
	accessTTL   time.Duration
	hospitalTTL time.Duration
	now         func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithAccessTTL overrides the token lifetime for user/agency/admin logins.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithHospitalTTL overrides the token lifetime for hospital logins.
func WithHospitalTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.hospitalTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, codec *token.Codec, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	s := &Service{
		store:       store,
		codec:       codec,
		accessTTL:   defaultAccessTTL,
		hospitalTTL: defaultHospitalTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Session is the outcome of a successful authentication.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RequestMeta carries request attribution for the audit trail.
type RequestMeta struct {
	SourceIP  string
	UserAgent string
}

// RegisterUserParams are the fields of a traveller registration.
type RegisterUserParams struct {
	Name     string
	LastName string
	Phone    string
	Email    string
	State    string
	Password string
}

// RegisterUser creates a traveller account and logs it straight in.
// A duplicate phone surfaces as ErrConflict from the store's constraint.
func (s *Service) RegisterUser(ctx context.Context, p RegisterUserParams, meta RequestMeta) (Session, *User, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	p.State = strings.TrimSpace(p.State)
	if p.Name == "" || p.LastName == "" || p.Phone == "" || p.State == "" {
		return Session{}, nil, fmt.Errorf("%w: name, last_name, phone and state are required", ErrInvalidInput)
	}
	if p.Password == "" {
		return Session{}, nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(p.Password)
	if err != nil {
		return Session{}, nil, err
	}

	user := &User{
		ID:           ids.New(),
		Name:         p.Name,
		LastName:     p.LastName,
		Phone:        p.Phone,
		Email:        p.Email,
		State:        p.State,
		PasswordHash: hash,
		Status:       StatusActive,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return Session{}, nil, err
	}

	session, err := s.issue(user.ID, RoleUser, user.Name, s.accessTTL)
	if err != nil {
		return Session{}, nil, err
	}
	s.audit(ctx, user.ID, RoleUser, "auth.user.register", meta)
	return session, user, nil
}

// LoginUser authenticates a traveller by phone and password.
func (s *Service) LoginUser(ctx context.Context, phone, password string, meta RequestMeta) (Session, *User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return Session{}, nil, ErrInvalidCredentials
	}
	user, err := s.store.Users(ctx).FindByPhone(ctx, phone)
	if err != nil {
		return Session{}, nil, ErrInvalidCredentials
	}
	if user.Status != StatusActive {
		return Session{}, nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, nil, ErrInvalidCredentials
	}
	session, err := s.issue(user.ID, RoleUser, user.Name, s.accessTTL)
	if err != nil {
		return Session{}, nil, err
	}
	s.audit(ctx, user.ID, RoleUser, "auth.user.login", meta)
	return session, user, nil
}

// LoginAgency authenticates an agency by its access code. The lookup of an
// active agency holding the code is the entire check: the code is both
// identifier and secret.
func (s *Service) LoginAgency(ctx context.Context, code string, meta RequestMeta) (Session, *Agency, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Session{}, nil, ErrInvalidCredentials
	}
	agency, err := s.store.Agencies(ctx).FindByCode(ctx, code)
	if err != nil {
		return Session{}, nil, ErrInvalidCredentials
	}
	if agency.Status != StatusActive {
		return Session{}, nil, ErrInvalidCredentials
	}
	session, err := s.issue(agency.ID, RoleAgency, agency.Name, s.accessTTL)
	if err != nil {
		return Session{}, nil, err
	}
	s.audit(ctx, agency.ID, RoleAgency, "auth.agency.login", meta)
	return session, agency, nil
}

// LoginAdmin authenticates an operator by email and password.
func (s *Service) LoginAdmin(ctx context.Context, email, password string, meta RequestMeta) (Session, *Admin, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, nil, ErrInvalidCredentials
	}
	admin, err := s.store.Admins(ctx).FindByEmail(ctx, email)
	if err != nil {
		return Session{}, nil, ErrInvalidCredentials
	}
	if admin.Status != StatusActive {
		return Session{}, nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(admin.PasswordHash, password); err != nil {
		return Session{}, nil, ErrInvalidCredentials
	}
	session, err := s.issue(admin.ID, RoleAdmin, admin.Name, s.accessTTL)
	if err != nil {
		return Session{}, nil, err
	}
	s.audit(ctx, admin.ID, RoleAdmin, "auth.admin.login", meta)
	return session, admin, nil
}

// RegisterHospitalParams are the fields of a hospital registration.
type RegisterHospitalParams struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// RegisterHospital creates a hospital account and logs it straight in.
func (s *Service) RegisterHospital(ctx context.Context, p RegisterHospitalParams, meta RequestMeta) (Session, *Hospital, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
	if p.Name == "" || p.Email == "" || p.Phone == "" || p.Password == "" {
		return Session{}, nil, fmt.Errorf("%w: name, email, password and phone are required", ErrInvalidInput)
	}
	if !strings.Contains(p.Email, "@") {
		return Session{}, nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	hash, err := HashPassword(p.Password)
	if err != nil {
		return Session{}, nil, err
	}

	hospital := &Hospital{
		ID:           ids.New(),
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: hash,
		Phone:        p.Phone,
		Address:      p.Address,
		Status:       StatusActive,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Hospitals(ctx).Create(ctx, hospital); err != nil {
		return Session{}, nil, err
	}

	session, err := s.issue(hospital.ID, RoleHospital, hospital.Name, s.hospitalTTL)
	if err != nil {
		return Session{}, nil, err
	}
	s.audit(ctx, hospital.ID, RoleHospital, "auth.hospital.register", meta)
	return session, hospital, nil
}

// LoginHospital authenticates a hospital by email and password.
func (s *Service) LoginHospital(ctx context.Context, email, password string, meta RequestMeta) (Session, *Hospital, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, nil, ErrInvalidCredentials
	}
	hospital, err := s.store.Hospitals(ctx).FindByEmail(ctx, email)
	if err != nil {
		return Session{}, nil, ErrInvalidCredentials
	}
	if hospital.Status != StatusActive {
		return Session{}, nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(hospital.PasswordHash, password); err != nil {
		return Session{}, nil, ErrInvalidCredentials
	}
	session, err := s.issue(hospital.ID, RoleHospital, hospital.Name, s.hospitalTTL)
	if err != nil {
		return Session{}, nil, err
	}
	s.audit(ctx, hospital.ID, RoleHospital, "auth.hospital.login", meta)
	return session, hospital, nil
}

// GetUser loads a traveller profile.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.store.Users(ctx).Find(ctx, id)
}

// UserProfileUpdate carries a full profile replacement.
type UserProfileUpdate struct {
	Name     string
	LastName string
	Phone    string
	Email    string
	State    string
}

// UpdateUserProfile replaces a traveller's profile fields.
func (s *Service) UpdateUserProfile(ctx context.Context, id string, upd UserProfileUpdate) (*User, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.LastName = strings.TrimSpace(upd.LastName)
	upd.Phone = strings.TrimSpace(upd.Phone)
	upd.Email = strings.TrimSpace(strings.ToLower(upd.Email))
	upd.State = strings.TrimSpace(upd.State)
	if upd.Name == "" || upd.LastName == "" || upd.Phone == "" || upd.State == "" {
		return nil, fmt.Errorf("%w: name, last_name, phone and state are required", ErrInvalidInput)
	}
	users := s.store.Users(ctx)
	user, err := users.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = upd.Name
	user.LastName = upd.LastName
	user.Phone = upd.Phone
	user.Email = upd.Email
	user.State = upd.State
	if err := users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all traveller accounts (operator view).
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users(ctx).List(ctx)
}

// SetUserStatus toggles a traveller account active/inactive.
func (s *Service) SetUserStatus(ctx context.Context, id, status string) error {
	status = strings.TrimSpace(strings.ToLower(status))
	if status != StatusActive && status != StatusInactive {
		return fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, status)
	}
	return s.store.Users(ctx).SetStatus(ctx, id, status)
}

// GetAgency loads an agency profile.
func (s *Service) GetAgency(ctx context.Context, id string) (*Agency, error) {
	return s.store.Agencies(ctx).Find(ctx, id)
}

// AgencyProfileUpdate carries the fields an agency may edit itself.
type AgencyProfileUpdate struct {
	Name        string
	Phone       string
	State       string
	City        string
	Description string
}

// UpdateAgencyProfile replaces an agency's self-managed profile fields.
func (s *Service) UpdateAgencyProfile(ctx context.Context, id string, upd AgencyProfileUpdate) (*Agency, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Phone = strings.TrimSpace(upd.Phone)
	upd.State = strings.TrimSpace(upd.State)
	upd.City = strings.TrimSpace(upd.City)
	if upd.Name == "" || upd.Phone == "" || upd.State == "" || upd.City == "" {
		return nil, fmt.Errorf("%w: name, phone, state and city are required", ErrInvalidInput)
	}
	agencies := s.store.Agencies(ctx)
	agency, err := agencies.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	agency.Name = upd.Name
	agency.Phone = upd.Phone
	agency.State = upd.State
	agency.City = upd.City
	agency.Description = strings.TrimSpace(upd.Description)
	if err := agencies.Update(ctx, agency); err != nil {
		return nil, err
	}
	return agency, nil
}

// ProvisionAgencyParams are the fields of an admin agency provisioning call.
type ProvisionAgencyParams struct {
	Name        string
	State       string
	City        string
	Phone       string
	Description string
	TripLimit   int
}

// ProvisionAgency creates an agency with a freshly generated access code.
// The code is returned once here; it never appears in profile responses.
func (s *Service) ProvisionAgency(ctx context.Context, p ProvisionAgencyParams, meta RequestMeta) (*Agency, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.State = strings.TrimSpace(p.State)
	p.City = strings.TrimSpace(p.City)
	p.Phone = strings.TrimSpace(p.Phone)
	if p.Name == "" || p.State == "" || p.City == "" || p.Phone == "" {
		return nil, fmt.Errorf("%w: name, state, city and phone are required", ErrInvalidInput)
	}
	if p.TripLimit <= 0 {
		p.TripLimit = 100
	}

	agencies := s.store.Agencies(ctx)
	// The access code carries a uniqueness constraint; retry on the
	// unlikely collision instead of surfacing it to the operator.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := GenerateAccessCode()
		if err != nil {
			return nil, err
		}
		agency := &Agency{
			ID:          ids.New(),
			Name:        p.Name,
			Code:        code,
			State:       p.State,
			City:        p.City,
			Phone:       p.Phone,
			Description: strings.TrimSpace(p.Description),
			TripLimit:   p.TripLimit,
			Status:      StatusActive,
			CreatedAt:   s.now().UTC(),
		}
		err = agencies.Create(ctx, agency)
		if err == nil {
			s.audit(ctx, agency.ID, RoleAgency, "auth.agency.provision", meta)
			return agency, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: could not allocate a unique access code", ErrConflict)
}

// AgencyAdminUpdate carries the fields an operator may change on an agency.
type AgencyAdminUpdate struct {
	Name      string
	TripLimit int
	Status    string
}

// AdminUpdateAgency applies operator-side changes to an agency.
func (s *Service) AdminUpdateAgency(ctx context.Context, id string, upd AgencyAdminUpdate) (*Agency, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	if upd.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if upd.TripLimit <= 0 {
		return nil, fmt.Errorf("%w: trip_limit must be positive", ErrInvalidInput)
	}
	status := strings.TrimSpace(strings.ToLower(upd.Status))
	if status != StatusActive && status != StatusInactive {
		return nil, fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, upd.Status)
	}
	agencies := s.store.Agencies(ctx)
	agency, err := agencies.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	agency.Name = upd.Name
	agency.TripLimit = upd.TripLimit
	agency.Status = status
	if err := agencies.Update(ctx, agency); err != nil {
		return nil, err
	}
	return agency, nil
}

// RegenerateAgencyCode replaces an agency's access code, invalidating the old
// one for future logins. Tokens already issued keep working until expiry.
func (s *Service) RegenerateAgencyCode(ctx context.Context, id string, meta RequestMeta) (string, error) {
	agencies := s.store.Agencies(ctx)
	if _, err := agencies.Find(ctx, id); err != nil {
		return "", err
	}
	for attempt := 0; attempt < 3; attempt++ {
		code, err := GenerateAccessCode()
		if err != nil {
			return "", err
		}
		err = agencies.SetCode(ctx, id, code)
		if err == nil {
			s.audit(ctx, id, RoleAgency, "auth.agency.code_rotate", meta)
			return code, nil
		}
		if !errors.Is(err, ErrConflict) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique access code", ErrConflict)
}

// SetAgencyStatus toggles an agency active/inactive.
func (s *Service) SetAgencyStatus(ctx context.Context, id, status string) error {
	status = strings.TrimSpace(strings.ToLower(status))
	if status != StatusActive && status != StatusInactive {
		return fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, status)
	}
	return s.store.Agencies(ctx).SetStatus(ctx, id, status)
}

// DeleteAgency removes an agency account.
func (s *Service) DeleteAgency(ctx context.Context, id string) error {
	return s.store.Agencies(ctx).Delete(ctx, id)
}

// ListAgencies returns all agencies (operator view, codes included so the
// handler can decide what to reveal).
func (s *Service) ListAgencies(ctx context.Context) ([]*Agency, error) {
	return s.store.Agencies(ctx).List(ctx)
}

func (s *Service) issue(principalID string, role Role, displayName string, ttl time.Duration) (Session, error) {
	signed, expiresAt, err := s.codec.Issue(token.Identity{
		PrincipalID: principalID,
		Role:        string(role),
		DisplayName: displayName,
	}, ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// audit appends an audit entry, deliberately ignoring failures: the trail
// must never block the operation it records.
func (s *Service) audit(ctx context.Context, principalID string, role Role, action string, meta RequestMeta) {
	_ = s.store.Audit(ctx).Append(ctx, &AuditEntry{
		ID:          ids.New(),
		OccurredAt:  s.now().UTC(),
		PrincipalID: principalID,
		Role:        role,
		Action:      action,
		SourceIP:    meta.SourceIP,
		UserAgent:   meta.UserAgent,
	})
}

// GenerateAccessCode returns a 10-digit numeric bearer code for agencies.
func GenerateAccessCode() (string, error) {
	max := big.NewInt(0).Exp(big.NewInt(10), big.NewInt(accessCodeDigits), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate access code: %w", err)
	}
	return fmt.Sprintf("%0*d", accessCodeDigits, n), nil
}
