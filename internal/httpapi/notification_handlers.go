package httpapi

import (
	"net/http"
	"strings"
)

func (a *API) handleNotificationResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/notifications/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.deleteNotification(w, r, id)
	case "read":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.markNotificationRead(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

// resolveNotification loads the notification and evaluates owner access,
// writing the failure response on a miss.
func (a *API) resolveNotification(w http.ResponseWriter, r *http.Request, id string) bool {
	notification, err := a.notify.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return false
	}
	_, ok := a.authorize(w, r, policyUserSelf, notification.UserID)
	return ok
}

func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request, id string) {
	if !a.resolveNotification(w, r, id) {
		return
	}
	if err := a.notify.MarkRead(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "read": true})
}

func (a *API) deleteNotification(w http.ResponseWriter, r *http.Request, id string) {
	if !a.resolveNotification(w, r, id) {
		return
	}
	if err := a.notify.Delete(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (a *API) handleNotificationsReadAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := a.authorize(w, r, policyUserOnly, "")
	if !ok {
		return
	}
	if err := a.notify.MarkAllRead(r.Context(), identity.PrincipalID); err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"read": true})
}
