package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"rehla.tn/internal/auth"
	"rehla.tn/internal/clinic"
	"rehla.tn/internal/notify"
	"rehla.tn/internal/trips"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// writeError emits the failure envelope. Bodies carry no request-scoped
// values: equal failures must serialize to equal bytes, so the request id
// travels in the X-Request-ID header instead.
func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// handleDomainError maps domain sentinels onto the HTTP status taxonomy.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, trips.ErrInvalidInput),
		errors.Is(err, clinic.ErrInvalidInput),
		errors.Is(err, notify.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrNotFound),
		errors.Is(err, trips.ErrNotFound),
		errors.Is(err, clinic.ErrNotFound),
		errors.Is(err, notify.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, auth.ErrConflict),
		errors.Is(err, trips.ErrConflict),
		errors.Is(err, clinic.ErrConflict),
		errors.Is(err, trips.ErrVotingClosed),
		errors.Is(err, trips.ErrNotBookable),
		errors.Is(err, trips.ErrTripLimitReached):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func meta(r *http.Request) auth.RequestMeta {
	return auth.RequestMeta{
		SourceIP:  clientIP(r),
		UserAgent: r.UserAgent(),
	}
}
