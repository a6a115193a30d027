package auth

import (
	"errors"
	"testing"

	"rehla.tn/internal/token"
)

func TestAuthorizeRoleCheck(t *testing.T) {
	pol := Policy{Roles: []Role{RoleAgency, RoleAdmin}}

	if err := Authorize(token.Identity{PrincipalID: "a1", Role: "agency"}, pol, ""); err != nil {
		t.Fatalf("agency should pass role check: %v", err)
	}
	if err := Authorize(token.Identity{PrincipalID: "u1", Role: "user"}, pol, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("user against agency route: want ErrForbidden, got %v", err)
	}
	if err := Authorize(token.Identity{PrincipalID: "x1", Role: "superuser"}, pol, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unknown role: want ErrForbidden, got %v", err)
	}
}

func TestAuthorizeEmptyRolesAllowsAnyAuthenticated(t *testing.T) {
	for _, role := range []string{"user", "agency", "admin", "hospital"} {
		if err := Authorize(token.Identity{PrincipalID: "p1", Role: role}, Policy{}, ""); err != nil {
			t.Fatalf("role %q should pass empty policy: %v", role, err)
		}
	}
}

func TestAuthorizeOwnershipIsolation(t *testing.T) {
	pol := Policy{Roles: []Role{RoleUser, RoleAdmin}, Ownership: true}

	owner := token.Identity{PrincipalID: "u1", Role: "user"}
	if err := Authorize(owner, pol, "u1"); err != nil {
		t.Fatalf("owner should reach own resource: %v", err)
	}

	// A non-owner gets not-found, never forbidden: the response must not
	// confirm the resource exists.
	stranger := token.Identity{PrincipalID: "u2", Role: "user"}
	if err := Authorize(stranger, pol, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner id: want ErrNotFound, got %v", err)
	}
}

func TestAuthorizeAdminBypassesOwnership(t *testing.T) {
	pol := Policy{Roles: []Role{RoleUser, RoleAdmin}, Ownership: true}

	admin := token.Identity{PrincipalID: "adm1", Role: "admin"}
	if err := Authorize(admin, pol, "u1"); err != nil {
		t.Fatalf("admin should bypass ownership: %v", err)
	}

	// The bypass covers ownership only; an unlisted admin still fails the
	// role check.
	hospitalOnly := Policy{Roles: []Role{RoleHospital}, Ownership: true}
	if err := Authorize(admin, hospitalOnly, "h1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admin against hospital-only route: want ErrForbidden, got %v", err)
	}
}

func TestAuthorizeAgencyOwnership(t *testing.T) {
	pol := Policy{Roles: []Role{RoleAgency, RoleAdmin}, Ownership: true}

	if err := Authorize(token.Identity{PrincipalID: "ag1", Role: "agency"}, pol, "ag1"); err != nil {
		t.Fatalf("agency should manage its own resources: %v", err)
	}
	if err := Authorize(token.Identity{PrincipalID: "ag2", Role: "agency"}, pol, "ag1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign agency: want ErrNotFound, got %v", err)
	}
}
