package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"rehla.tn/internal/token"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryStore) {
	t.Helper()
	codec, err := token.NewCodec("test-secret-please-rotate")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	store := NewMemoryStore()
	svc, err := NewService(store, codec, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestRegisterAndLoginUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, user, err := svc.RegisterUser(ctx, RegisterUserParams{
		Name:     "Amira",
		LastName: "Ben Salah",
		Phone:    "21650123456",
		State:    "Tunis",
		Password: "s3cret",
	}, RequestMeta{})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if session.Token == "" {
		t.Fatal("register should return a token")
	}
	if user.PasswordHash == "s3cret" {
		t.Fatal("password must be stored hashed")
	}

	again, logged, err := svc.LoginUser(ctx, "21650123456", "s3cret", RequestMeta{})
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("login resolved wrong account: got %s want %s", logged.ID, user.ID)
	}
	if again.ExpiresAt.Before(time.Now().Add(23 * time.Hour)) {
		t.Fatalf("user session should last about 24h, expires %v", again.ExpiresAt)
	}
}

func TestLoginUserFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.RegisterUser(ctx, RegisterUserParams{
		Name: "Amira", LastName: "Ben Salah", Phone: "21650123456", State: "Tunis", Password: "s3cret",
	}, RequestMeta{}); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if err := svc.SetUserStatus(ctx, mustFindUserID(t, svc, ctx, "21650123456"), StatusInactive); err != nil {
		t.Fatalf("SetUserStatus: %v", err)
	}

	cases := []struct {
		name     string
		phone    string
		password string
	}{
		{"unknown phone", "21699999999", "s3cret"},
		{"wrong password", "21650123456", "nope"},
		{"inactive account", "21650123456", "s3cret"},
		{"empty credentials", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.LoginUser(ctx, tc.phone, tc.password, RequestMeta{})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("want ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func mustFindUserID(t *testing.T, svc *Service, ctx context.Context, phone string) string {
	t.Helper()
	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	for _, u := range users {
		if u.Phone == phone {
			return u.ID
		}
	}
	t.Fatalf("no user with phone %s", phone)
	return ""
}

func TestRegisterUserDuplicatePhone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p := RegisterUserParams{Name: "A", LastName: "B", Phone: "21650123456", State: "Tunis", Password: "pw"}
	if _, _, err := svc.RegisterUser(ctx, p, RequestMeta{}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, _, err := svc.RegisterUser(ctx, p, RequestMeta{}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate phone: want ErrConflict, got %v", err)
	}
}

func TestAgencyCodeLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	agency, err := svc.ProvisionAgency(ctx, ProvisionAgencyParams{
		Name: "Sahara Tours", State: "Tozeur", City: "Tozeur", Phone: "21676111222",
	}, RequestMeta{})
	if err != nil {
		t.Fatalf("ProvisionAgency: %v", err)
	}
	if len(agency.Code) != accessCodeDigits {
		t.Fatalf("access code length: got %d want %d", len(agency.Code), accessCodeDigits)
	}

	session, logged, err := svc.LoginAgency(ctx, agency.Code, RequestMeta{})
	if err != nil {
		t.Fatalf("LoginAgency: %v", err)
	}
	if logged.ID != agency.ID {
		t.Fatalf("code resolved wrong agency: got %s want %s", logged.ID, agency.ID)
	}
	if session.Token == "" {
		t.Fatal("login should return a token")
	}

	if _, _, err := svc.LoginAgency(ctx, "0000000000", RequestMeta{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown code: want ErrInvalidCredentials, got %v", err)
	}

	// Deactivated agencies cannot log in even with the right code.
	if err := svc.SetAgencyStatus(ctx, agency.ID, StatusInactive); err != nil {
		t.Fatalf("SetAgencyStatus: %v", err)
	}
	if _, _, err := svc.LoginAgency(ctx, agency.Code, RequestMeta{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive agency: want ErrInvalidCredentials, got %v", err)
	}
}

func TestRegenerateAgencyCodeInvalidatesOldCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	agency, err := svc.ProvisionAgency(ctx, ProvisionAgencyParams{
		Name: "Sahara Tours", State: "Tozeur", City: "Tozeur", Phone: "21676111222",
	}, RequestMeta{})
	if err != nil {
		t.Fatalf("ProvisionAgency: %v", err)
	}
	old := agency.Code

	fresh, err := svc.RegenerateAgencyCode(ctx, agency.ID, RequestMeta{})
	if err != nil {
		t.Fatalf("RegenerateAgencyCode: %v", err)
	}
	if fresh == old {
		t.Fatal("regenerated code must differ from the old one")
	}
	if _, _, err := svc.LoginAgency(ctx, old, RequestMeta{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old code after rotation: want ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.LoginAgency(ctx, fresh, RequestMeta{}); err != nil {
		t.Fatalf("fresh code should log in: %v", err)
	}
}

func TestHospitalSessionLastsSevenDays(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec, err := token.NewCodec("test-secret-please-rotate", token.WithClock(func() time.Time { return base }))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc, err := NewService(NewMemoryStore(), codec, WithClock(func() time.Time { return base }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	session, _, err := svc.RegisterHospital(ctx, RegisterHospitalParams{
		Name: "Hopital Charles Nicolle", Email: "contact@hcn.tn", Password: "pw", Phone: "21671555000",
	}, RequestMeta{})
	if err != nil {
		t.Fatalf("RegisterHospital: %v", err)
	}
	if want := base.Add(7 * 24 * time.Hour); !session.ExpiresAt.Equal(want) {
		t.Fatalf("hospital expiry: got %v want %v", session.ExpiresAt, want)
	}

	if _, _, err := svc.LoginHospital(ctx, "contact@hcn.tn", "pw", RequestMeta{}); err != nil {
		t.Fatalf("LoginHospital: %v", err)
	}
	if _, _, err := svc.LoginHospital(ctx, "contact@hcn.tn", "wrong", RequestMeta{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	hash, err := HashPassword("admin-pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := store.Admins(ctx).Create(ctx, &Admin{
		ID: "adm1", Name: "Root", Email: "root@rehla.tn", PasswordHash: hash, Status: StatusActive,
	}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	session, admin, err := svc.LoginAdmin(ctx, "Root@Rehla.tn", "admin-pw", RequestMeta{})
	if err != nil {
		t.Fatalf("LoginAdmin: %v", err)
	}
	if admin.ID != "adm1" || session.Token == "" {
		t.Fatalf("unexpected login result: admin=%+v token=%q", admin, session.Token)
	}

	if _, _, err := svc.LoginAdmin(ctx, "root@rehla.tn", "wrong", RequestMeta{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.LoginAdmin(ctx, "ghost@rehla.tn", "admin-pw", RequestMeta{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: want ErrInvalidCredentials, got %v", err)
	}
}

func TestConcurrentRegistrationOnePhoneOneWinner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const attempts = 8
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, _, err := svc.RegisterUser(ctx, RegisterUserParams{
				Name: "A", LastName: "B", Phone: "21650123456", State: "Tunis", Password: "pw",
			}, RequestMeta{})
			errs <- err
		}()
	}

	var ok, conflict int
	for i := 0; i < attempts; i++ {
		switch err := <-errs; {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != attempts-1 {
		t.Fatalf("want exactly one winner, got ok=%d conflict=%d", ok, conflict)
	}
}
