package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestBuildInfoExported(t *testing.T) {
	InitBuildInfo("test", "abc123")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "build_info") {
		t.Fatal("build_info gauge absent from /metrics output")
	}
	if !strings.Contains(body, `version="test"`) {
		t.Fatal("build_info missing version label")
	}
}

func TestLogRequestEmitsParseableJSON(t *testing.T) {
	var buf bytes.Buffer
	Logger().SetOutput(&buf)
	defer Logger().SetOutput(os.Stdout)

	LogRequest(map[string]any{"msg": "request_complete", "status": 200})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "request_complete" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/v1/auth/login":                  "/v1/auth/login",
		"/v1/users/abc":                   "/v1/users/:id",
		"/v1/users/abc/stats":             "/v1/users/:id/stats",
		"/v1/users/abc/extra":             "/v1/users/abc/extra",
		"/v1/trips/abc/votes":             "/v1/trips/:id/votes",
		"/v1/bookings/abc/status":         "/v1/bookings/:id/status",
		"/v1/admin/agencies/abc":          "/v1/admin/agencies/:id",
		"/v1/admin/agencies/abc/code":     "/v1/admin/agencies/:id/code",
		"/v1/admin/users/abc/status":      "/v1/admin/users/:id/status",
		"/v1/admin/stats":                 "/v1/admin/stats",
		"/v1/patients/abc/doses":          "/v1/patients/:id/doses",
		"/v1/doses/due":                   "/v1/doses/due",
		"/v1/doses/due?days=60":           "/v1/doses/due",
		"/v1/doses/abc/administer":        "/v1/doses/:id/administer",
		"/v1/notifications/read-all":      "/v1/notifications/read-all",
		"/v1/notifications/abc/read":      "/v1/notifications/:id/read",
		"/v1/trips?viewer=self&limit=10":  "/v1/trips",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
