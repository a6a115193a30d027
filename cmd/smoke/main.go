package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// Smoke client for a running rehla-api: registers a traveller, logs in and
// checks that the access envelope holds (own profile readable, a foreign id
// indistinguishable from a missing one).
func main() {
	base := os.Getenv("REHLA_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 5 * time.Second}
	phone := fmt.Sprintf("216%08d", rand.New(rand.NewSource(time.Now().UnixNano())).Intn(100000000))

	reg, status := call(client, http.MethodPost, base+"/v1/auth/register", map[string]any{
		"name": "Smoke", "last_name": "Test", "phone": phone, "state": "Tunis", "password": "smoke-pass",
	}, "")
	if status != http.StatusCreated {
		log.Fatalf("register: status %d", status)
	}
	token, _ := reg["token"].(string)
	user, _ := reg["user"].(map[string]any)
	userID, _ := user["id"].(string)
	if token == "" || userID == "" {
		log.Fatalf("register: incomplete session payload %v", reg)
	}

	login, status := call(client, http.MethodPost, base+"/v1/auth/login", map[string]any{
		"phone": phone, "password": "smoke-pass",
	}, "")
	if status != http.StatusOK || login["token"] == "" {
		log.Fatalf("login: status %d", status)
	}

	if _, status := call(client, http.MethodGet, base+"/v1/users/"+userID, nil, token); status != http.StatusOK {
		log.Fatalf("own profile: status %d", status)
	}
	if _, status := call(client, http.MethodGet, base+"/v1/users/does-not-exist", nil, token); status != http.StatusNotFound {
		log.Fatalf("foreign profile: status %d, want 404", status)
	}
	if _, status := call(client, http.MethodGet, base+"/v1/users/"+userID, nil, ""); status != http.StatusUnauthorized {
		log.Fatalf("anonymous profile: status %d, want 401", status)
	}

	fmt.Printf("✅ rehla-api smoke test passed: user=%s\n", userID)
}

func call(client *http.Client, method, url string, body any, token string) (map[string]any, int) {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env struct {
		Data map[string]any `json:"data"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return env.Data, resp.StatusCode
}
