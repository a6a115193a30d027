package httpapi

import (
	"net/http"
	"strings"

	"rehla.tn/internal/audit"
)

type createBookingRequest struct {
	TripID string `json:"trip_id"`
	Seats  int    `json:"seats"`
}

func (a *API) handleBookingsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := a.authorize(w, r, policyUserOnly, "")
	if !ok {
		return
	}
	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	booking, err := a.trips.CreateBooking(r.Context(), identity.PrincipalID, strings.TrimSpace(req.TripID), req.Seats)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "trips.booking.create", map[string]any{"booking_id": booking.ID})
	w.Header().Set("Location", "/v1/bookings/"+booking.ID)
	writeJSON(w, http.StatusCreated, booking)
}

func (a *API) handleBookingResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/bookings/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getBooking(w, r, id)
	case "status":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, r, http.MethodPatch)
			return
		}
		a.setBookingStatus(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getBooking(w http.ResponseWriter, r *http.Request, id string) {
	booking, err := a.trips.GetBooking(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if _, ok := a.authorize(w, r, policyUserSelf, booking.UserID); !ok {
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// setBookingStatus is agency-side: the booking's trip must belong to the
// acting agency.
func (a *API) setBookingStatus(w http.ResponseWriter, r *http.Request, id string) {
	booking, err := a.trips.GetBooking(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	trip, err := a.trips.GetTrip(r.Context(), booking.TripID)
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
	if err := a.trips.SetBookingStatus(r.Context(), id, req.Status); err != nil {
		handleDomainError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "trips.booking.status", map[string]any{"booking_id": id, "status": req.Status})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}
