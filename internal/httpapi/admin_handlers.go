package httpapi

import (
	"net/http"
	"strings"

	"rehla.tn/internal/audit"
	"rehla.tn/internal/auth"
)

type provisionAgencyRequest struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	City        string `json:"city"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
	TripLimit   int    `json:"trip_limit"`
}

type adminUpdateAgencyRequest struct {
	Name      string `json:"name"`
	TripLimit int    `json:"trip_limit"`
	Status    string `json:"status"`
}

// provisionedAgency is the one response shape that reveals the access code.
type provisionedAgency struct {
	*auth.Agency
	Code string `json:"code"`
}

func (a *API) handleAdminAgenciesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAgencies(w, r)
	case http.MethodPost:
		a.provisionAgency(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAdminAgencyResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/admin/agencies/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodPut:
			a.adminUpdateAgency(w, r, id)
		case http.MethodDelete:
			a.deleteAgency(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
		}
	case "code":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.regenerateAgencyCode(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listAgencies(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, policyAdminOnly, ""); !ok {
		return
	}
	agencies, err := a.auth.ListAgencies(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agencies)
}

func (a *API) provisionAgency(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.authorize(w, r, policyAdminOnly, ""); !ok {
		return
	}
	var req provisionAgencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	agency, err := a.auth.ProvisionAgency(r.Context(), auth.ProvisionAgencyParams{
		Name:        req.Name,
		State:       req.State,
		City:        req.City,
		Phone:       req.Phone,
		Description: req.Description,
		TripLimit:   req.TripLimit,
	}, meta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.agency.provision", map[string]any{"agency_id": agency.ID})
	w.Header().Set("Location", "/v1/agencies/"+agency.ID)
	writeJSON(w, http.StatusCreated, provisionedAgency{Agency: agency, Code: agency.Code})
}

func (a *API) adminUpdateAgency(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyAdminOnly, ""); !ok {
		return
	}
	var req adminUpdateAgencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	agency, err := a.auth.AdminUpdateAgency(r.Context(), id, auth.AgencyAdminUpdate{
		Name:      req.Name,
		TripLimit: req.TripLimit,
		Status:    req.Status,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agency)
}

func (a *API) deleteAgency(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyAdminOnly, ""); !ok {
		return
	}
	if err := a.auth.DeleteAgency(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.agency.delete", map[string]any{"agency_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (a *API) regenerateAgencyCode(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyAdminOnly, ""); !ok {
		return
	}
	code, err := a.auth.RegenerateAgencyCode(r.Context(), id, meta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.agency.code_rotate", map[string]any{"agency_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "code": code})
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.authorize(w, r, policyAdminOnly, ""); !ok {
		return
	}
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleAdminUserResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/admin/users/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" || sub != "status" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	if _, ok := a.authorize(w, r, policyAdminOnly, ""); !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.SetUserStatus(r.Context(), id, req.Status); err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.user.status", map[string]any{"user_id": id, "status": req.Status})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

func (a *API) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.authorize(w, r, policyAdminOnly, ""); !ok {
		return
	}
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	agencies, err := a.auth.ListAgencies(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	totals, err := a.trips.PlatformTotals(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":    len(users),
		"agencies": len(agencies),
		"trips":    totals.Trips,
		"bookings": totals.Bookings,
	})
}
