package httpapi

import (
	"net/http"
	"strings"
	"time"

	"rehla.tn/internal/audit"
	"rehla.tn/internal/auth"
	"rehla.tn/internal/trips"
)

type tripRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Destination string    `json:"destination"`
	Price       int64     `json:"price"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	MinVotes    int       `json:"min_votes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleTripsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listVotingTrips(w, r)
	case http.MethodPost:
		a.createTrip(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTripResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/trips/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getTrip(w, r, id)
		case http.MethodPut:
			a.updateTrip(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
	case "status":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, r, http.MethodPatch)
			return
		}
		a.setTripStatus(w, r, id)
	case "votes":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.castVote(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listVotingTrips(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.authorize(w, r, policyAnyPrincipal, "")
	if !ok {
		return
	}
	viewerID := ""
	if identity.Role == string(auth.RoleUser) {
		viewerID = identity.PrincipalID
	}
	open, err := a.trips.ListVotingTrips(r.Context(), viewerID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, open)
}

func (a *API) createTrip(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.authorize(w, r, policyAgencyOnly, "")
	if !ok {
		return
	}
	var req tripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trip, err := a.trips.CreateTrip(r.Context(), identity.PrincipalID, trips.CreateTripParams{
		Title:       req.Title,
		Description: req.Description,
		Destination: req.Destination,
		Price:       req.Price,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		MinVotes:    req.MinVotes,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "trips.trip.create", map[string]any{"trip_id": trip.ID})
	w.Header().Set("Location", "/v1/trips/"+trip.ID)
	writeJSON(w, http.StatusCreated, trip)
}

func (a *API) getTrip(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyAnyPrincipal, ""); !ok {
		return
	}
	trip, err := a.trips.GetTrip(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (a *API) updateTrip(w http.ResponseWriter, r *http.Request, id string) {
	trip, err := a.trips.GetTrip(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if _, ok := a.authorize(w, r, policyAgencySelf, trip.AgencyID); !ok {
		return
	}
	var req tripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.trips.UpdateTrip(r.Context(), id, trips.UpdateTripParams{
		Title:       req.Title,
		Description: req.Description,
		Destination: req.Destination,
		Price:       req.Price,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		MinVotes:    req.MinVotes,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) setTripStatus(w http.ResponseWriter, r *http.Request, id string) {
	trip, err := a.trips.GetTrip(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if _, ok := a.authorize(w, r, policyAgencySelf, trip.AgencyID); !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.trips.SetTripStatus(r.Context(), id, req.Status); err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "trips.trip.status", map[string]any{"trip_id": id, "status": req.Status})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

func (a *API) castVote(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := a.authorize(w, r, policyUserOnly, "")
	if !ok {
		return
	}
	summary, activated, err := a.trips.CastVote(r.Context(), identity.PrincipalID, id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if activated {
		// Tell everyone who voted that the trip is on.
		if voters, err := a.trips.VoterIDs(r.Context(), id); err == nil {
			_ = a.notify.Broadcast(r.Context(), voters,
				"Trip activated: "+summary.Title,
				"The trip you voted for reached its vote threshold and is now open for booking.")
		}
		_ = audit.LogEvent(r.Context(), "trips.trip.activate", map[string]any{"trip_id": id})
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"trip":      summary,
		"activated": activated,
	})
}
