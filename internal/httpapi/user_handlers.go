package httpapi

import (
	"net/http"
	"strings"

	"rehla.tn/internal/auth"
)

type updateUserRequest struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	State    string `json:"state"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
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

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getUser(w, r, id)
		case http.MethodPut:
			a.updateUser(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
	case "stats":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getUserStats(w, r, id)
	case "trips":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listUserTrips(w, r, id)
	case "bookings":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listUserBookings(w, r, id)
	case "notifications":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listUserNotifications(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyUserSelf, id); !ok {
		return
	}
	user, err := a.auth.GetUser(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyUserSelf, id); !ok {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.auth.UpdateUserProfile(r.Context(), id, auth.UserProfileUpdate{
		Name:     req.Name,
		LastName: req.LastName,
		Phone:    req.Phone,
		Email:    req.Email,
		State:    req.State,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) getUserStats(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyUserSelf, id); !ok {
		return
	}
	stats, err := a.trips.StatsForUser(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	unread, err := a.notify.UnreadCount(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"votes":                stats.Votes,
		"bookings":             stats.Bookings,
		"unread_notifications": unread,
	})
}

func (a *API) listUserTrips(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyUserSelf, id); !ok {
		return
	}
	voted, err := a.trips.ListVotedTrips(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voted)
}

func (a *API) listUserBookings(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyUserSelf, id); !ok {
		return
	}
	bookings, err := a.trips.ListUserBookings(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (a *API) listUserNotifications(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := a.authorize(w, r, policyUserSelf, id); !ok {
		return
	}
	inbox, err := a.notify.Inbox(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}
