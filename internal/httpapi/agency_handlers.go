package httpapi

import (
	"net/http"
	"strings"

	"rehla.tn/internal/auth"
)

type updateAgencyProfileRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	State       string `json:"state"`
	City        string `json:"city"`
	Description string `json:"description"`
}

func (a *API) handleAgencyResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/agencies/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getAgency(w, r, id)
		case http.MethodPut:
			a.updateAgency(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
	case "trips":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listAgencyTrips(w, r, id)
	case "bookings":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listAgencyBookings(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getAgency(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyAgencySelf, id); !ok {
		return
	}
	agency, err := a.auth.GetAgency(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agency)
}

func (a *API) updateAgency(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyAgencySelf, id); !ok {
		return
	}
	var req updateAgencyProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	agency, err := a.auth.UpdateAgencyProfile(r.Context(), id, auth.AgencyProfileUpdate{
		Name:        req.Name,
		Phone:       req.Phone,
		State:       req.State,
		City:        req.City,
		Description: req.Description,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agency)
}

func (a *API) listAgencyTrips(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyAgencySelf, id); !ok {
		return
	}
	owned, err := a.trips.ListAgencyTrips(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, owned)
}

func (a *API) listAgencyBookings(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyAgencySelf, id); !ok {
		return
	}
	bookings, err := a.trips.ListAgencyBookings(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}
