package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	c, err := NewCodec("test-secret", opts...)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec("   "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	identity := Identity{PrincipalID: "user-7", Role: "user", DisplayName: "Amira"}
	signed, expiresAt, err := codec.Issue(identity, 24*time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	got, err := codec.Verify(signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != identity {
		t.Fatalf("identity mismatch: got %+v want %+v", got, identity)
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	codec := newTestCodec(t, WithClock(func() time.Time { return clock }))

	signed, expiresAt, err := codec.Issue(Identity{PrincipalID: "user-1", Role: "user"}, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(issued) {
		t.Fatalf("expected expiry at issuance for ttl=0, got %v", expiresAt)
	}

	// Exactly at expiry counts as expired.
	if _, err := codec.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken at expiry instant, got %v", err)
	}

	clock = issued.Add(time.Second)
	if _, err := codec.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}

	// A one-second token is still valid just before its expiry.
	signed, _, err = codec.Issue(Identity{PrincipalID: "user-1", Role: "user"}, time.Second)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Verify(signed); err != nil {
		t.Fatalf("expected valid token before expiry, got %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	codec := newTestCodec(t)
	signed, _, err := codec.Issue(Identity{PrincipalID: "user-9", Role: "admin"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", signed)
	}
	sig := []byte(parts[2])
	for i := range sig {
		mutated := make([]byte, len(sig))
		copy(mutated, sig)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		tampered := parts[0] + "." + parts[1] + "." + string(mutated)
		if _, err := codec.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("tampered signature byte %d accepted", i)
		}
	}
}

func TestVerifyRejectsForeignSecretAndIssuer(t *testing.T) {
	codec := newTestCodec(t)

	other, err := NewCodec("other-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	foreign, _, err := other.Issue(Identity{PrincipalID: "user-1", Role: "user"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Verify(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token signed with a different secret accepted: %v", err)
	}

	otherIssuer := newTestCodec(t, WithIssuer("someone-else"))
	signed, _, err := otherIssuer.Issue(Identity{PrincipalID: "user-1", Role: "user"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token with foreign issuer accepted: %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec := newTestCodec(t)
	for _, raw := range []string{"", "   ", "not-a-token", "a.b", "a.b.c.d"} {
		if _, err := codec.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("garbage input %q accepted: %v", raw, err)
		}
	}
}

func TestIssueValidation(t *testing.T) {
	codec := newTestCodec(t)
	if _, _, err := codec.Issue(Identity{Role: "user"}, time.Hour); err == nil {
		t.Fatal("expected error for missing principal id")
	}
	if _, _, err := codec.Issue(Identity{PrincipalID: "x"}, time.Hour); err == nil {
		t.Fatal("expected error for missing role")
	}
	if _, _, err := codec.Issue(Identity{PrincipalID: "x", Role: "user"}, -time.Second); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}
