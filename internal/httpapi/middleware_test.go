package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"rehla.tn/internal/auth"
	"rehla.tn/internal/token"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"pong": true})
	})
}

func TestRequestIDHeaderAssigned(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/info", nil))

	rid := rec.Header().Get("X-Request-ID")
	if rid == "" {
		t.Fatal("missing X-Request-ID header")
	}
	if seen != rid {
		t.Fatalf("context id %q != header id %q", seen, rid)
	}
}

func TestRequestIDPropagatesClientValue(t *testing.T) {
	h := RequestID(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	req.Header.Set("X-Request-ID", "client-supplied")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied" {
		t.Fatalf("X-Request-ID: got %q", got)
	}
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	h := RateLimit(okHandler(), 2, 1)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("first two requests should pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("third request: got %d want 429", statuses[2])
	}
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	h := RateLimit(okHandler(), 1, 1)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
		req.RemoteAddr = "10.1.2.4:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if i == 1 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("status: got %d want 429", rec.Code)
			}
			if rec.Header().Get("Retry-After") != "1" {
				t.Fatalf("Retry-After: got %q", rec.Header().Get("Retry-After"))
			}
		}
	}
}

func TestRateLimitIsolatesClients(t *testing.T) {
	h := RateLimit(okHandler(), 1, 1)

	first := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
	first.RemoteAddr = "10.0.0.1:1000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first client: %d", rec.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
	other.RemoteAddr = "10.0.0.2:1000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client should have its own bucket: %d", rec.Code)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	h := SecurityHeaders(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/info", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s: got %q want %q", header, got, want)
		}
	}
}

func TestCORSAnswersPreflight(t *testing.T) {
	h := CORS(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/v1/trips", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status: %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin: %q", got)
	}
}

func TestCORSIgnoresForeignOrigin(t *testing.T) {
	h := CORS(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/trips", nil)
	req.Header.Set("Origin", "https://evil.example")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin should be empty for foreign origins, got %q", got)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("clientIP: %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "10.0.0.9" {
		t.Fatalf("clientIP: %q", got)
	}
}

func TestErrorBodiesCarryNoRequestState(t *testing.T) {
	// Two failures of the same shape must serialize identically even when the
	// requests carry different request ids.
	record := func(rid string) []byte {
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		}))
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.Header.Set("X-Request-ID", rid)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Body.Bytes()
	}

	a := record("req-one")
	b := record("req-two")
	if string(a) != string(b) {
		t.Fatalf("error bodies differ:\n%s\n%s", a, b)
	}
}

func TestAuthorizeMapsOwnershipMissToNotFound(t *testing.T) {
	api := &API{}
	req := httptest.NewRequest(http.MethodGet, "/v1/users/other", nil)
	req = req.WithContext(auth.ContextWithIdentity(req.Context(), token.Identity{
		PrincipalID: "me", Role: "user",
	}))

	rec := httptest.NewRecorder()
	if _, ok := api.authorize(rec, req, policyUserSelf, "other"); ok {
		t.Fatal("expected authorization failure")
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("ownership miss: got %d want 404", rec.Code)
	}

	// A role mismatch is a plain 403.
	rec = httptest.NewRecorder()
	if _, ok := api.authorize(rec, req, policyAdminOnly, ""); ok {
		t.Fatal("expected authorization failure")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("role mismatch: got %d want 403", rec.Code)
	}
}
