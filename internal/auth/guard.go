package auth

import (
	"rehla.tn/internal/token"
)

// Policy declares what a route requires. Evaluated in one place instead of
// being re-implemented inline in every handler, so routes cannot drift apart.
type Policy struct {
	// Roles lists the roles allowed through. Empty means any authenticated
	// principal. Admin access to owner-scoped routes is granted by listing
	// RoleAdmin here, not implicitly.
	Roles []Role

	// Ownership requires the addressed resource's owner id to equal the
	// principal's id. Admins bypass this check entirely.
	Ownership bool
}

// Authorize evaluates a policy for the verified identity. ownerID is the
// owning-principal id the route addresses; it is ignored unless the policy
// requires ownership.
//
// Role mismatch yields ErrForbidden. An ownership miss yields ErrNotFound so
// non-owners cannot probe which resource ids exist.
func Authorize(id token.Identity, pol Policy, ownerID string) error {
	role, ok := ParseRole(id.Role)
	if !ok {
		return ErrForbidden
	}
	if len(pol.Roles) > 0 && !containsRole(pol.Roles, role) {
		return ErrForbidden
	}
	if pol.Ownership && role != RoleAdmin && ownerID != id.PrincipalID {
		return ErrNotFound
	}
	return nil
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
