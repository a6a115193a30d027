// Package httpapi is the HTTP surface of the Rehla platform. Handlers stay
// thin: they bind parameters, evaluate the route's access policy and delegate
// to the domain services.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"rehla.tn/internal/auth"
	"rehla.tn/internal/clinic"
	"rehla.tn/internal/notify"
	"rehla.tn/internal/obs"
	"rehla.tn/internal/token"
	"rehla.tn/internal/trips"
)

// ReadyProbe reports backing-store readiness for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Auth    *auth.Service
	Codec   *token.Codec
	Trips   *trips.Service
	Clinic  *clinic.Service
	Notify  *notify.Service
	Ready   ReadyProbe
	Version string

	// RatePerSecond enables per-IP rate limiting when positive.
	RatePerSecond int
	RateBurst     int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	codec      *token.Codec
	trips      *trips.Service
	clinic     *clinic.Service
	notify     *notify.Service
	readyProbe ReadyProbe
	version    string
	ratePerSec int
	rateBurst  int
}

// New assembles the route table.
func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       cfg.Auth,
		codec:      cfg.Codec,
		trips:      cfg.Trips,
		clinic:     cfg.Clinic,
		notify:     cfg.Notify,
		readyProbe: cfg.Ready,
		version:    cfg.Version,
		ratePerSec: cfg.RatePerSecond,
		rateBurst:  cfg.RateBurst,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/agency/login", a.handleAgencyLogin)
	a.mux.HandleFunc("/v1/auth/admin/login", a.handleAdminLogin)
	a.mux.HandleFunc("/v1/auth/hospital/register", a.handleHospitalRegister)
	a.mux.HandleFunc("/v1/auth/hospital/login", a.handleHospitalLogin)

	// travellers
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	// trips, votes, bookings
	a.mux.HandleFunc("/v1/trips", a.handleTripsCollection)
	a.mux.HandleFunc("/v1/trips/", a.handleTripResource)
	a.mux.HandleFunc("/v1/bookings", a.handleBookingsCollection)
	a.mux.HandleFunc("/v1/bookings/", a.handleBookingResource)

	// agencies
	a.mux.HandleFunc("/v1/agencies/", a.handleAgencyResource)

	// operator console
	a.mux.HandleFunc("/v1/admin/agencies", a.handleAdminAgenciesCollection)
	a.mux.HandleFunc("/v1/admin/agencies/", a.handleAdminAgencyResource)
	a.mux.HandleFunc("/v1/admin/users", a.handleAdminUsers)
	a.mux.HandleFunc("/v1/admin/users/", a.handleAdminUserResource)
	a.mux.HandleFunc("/v1/admin/stats", a.handleAdminStats)

	// hospital console
	a.mux.HandleFunc("/v1/patients", a.handlePatientsCollection)
	a.mux.HandleFunc("/v1/patients/", a.handlePatientResource)
	a.mux.HandleFunc("/v1/doses/", a.handleDoseResource)
	a.mux.HandleFunc("/v1/doses/due", a.handleDueDoses)

	// notifications
	a.mux.HandleFunc("/v1/notifications/", a.handleNotificationResource)
	a.mux.HandleFunc("/v1/notifications/read-all", a.handleNotificationsReadAll)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the fully wrapped handler chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	if a.ratePerSec > 0 {
		burst := a.rateBurst
		if burst <= 0 {
			burst = a.ratePerSec
		}
		h = RateLimit(h, burst, a.ratePerSec)
	}
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "rehla-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "rehla-api",
		"version": a.version,
	})
}
