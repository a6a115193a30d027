package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"rehla.tn/internal/auth"
	"rehla.tn/internal/token"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/auth/agency/login",
	"/v1/auth/admin/login",
	"/v1/auth/hospital/register",
	"/v1/auth/hospital/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// Route policies. Admin reach into owner-scoped routes is explicit: a policy
// grants it by listing RoleAdmin, never implicitly.
var (
	policyAnyPrincipal = auth.Policy{}
	policyUserOnly     = auth.Policy{Roles: []auth.Role{auth.RoleUser}}
	policyAgencyOnly   = auth.Policy{Roles: []auth.Role{auth.RoleAgency}}
	policyAdminOnly    = auth.Policy{Roles: []auth.Role{auth.RoleAdmin}}
	policyUserSelf     = auth.Policy{Roles: []auth.Role{auth.RoleUser, auth.RoleAdmin}, Ownership: true}
	policyAgencySelf   = auth.Policy{Roles: []auth.Role{auth.RoleAgency, auth.RoleAdmin}, Ownership: true}
	policyHospitalSelf = auth.Policy{Roles: []auth.Role{auth.RoleHospital, auth.RoleAdmin}, Ownership: true}
)

// withAuth verifies the bearer token on every non-public route and stores the
// identity in the request context. Route-level policies run afterwards via
// authorize.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "token not provided")
			return
		}
		identity, err := a.codec.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), identity)))
	})
}

// authorize evaluates the route policy for the authenticated principal and
// writes the failure response itself. ownerID is the owning-principal id the
// route addresses; pass "" when the policy carries no ownership requirement.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, pol auth.Policy, ownerID string) (token.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token not provided")
		return token.Identity{}, false
	}
	if err := auth.Authorize(identity, pol, ownerID); err != nil {
		switch {
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, http.StatusNotFound, "resource not found")
		default:
			writeError(w, http.StatusForbidden, "forbidden")
		}
		return token.Identity{}, false
	}
	return identity, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	raw := strings.TrimSpace(header[len(bearer):])
	if raw == "" {
		return "", errors.New("missing bearer token")
	}
	return raw, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
