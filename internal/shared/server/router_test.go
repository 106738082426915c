package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"registration-backend/internal/health"
	"registration-backend/internal/registrations"
	"registration-backend/internal/shared/config"
	"registration-backend/internal/shared/server/middleware"
	localstore "registration-backend/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T, rate float64, burst int, trusted ...string) http.Handler {
	t.Helper()
	svc := &registrations.Service{
		Repo:            registrations.NewMemoryRepo(),
		Store:           localstore.New(t.TempDir()),
		StorageProvider: "local",
		Refs:            registrations.RandomReferences{},
		Rules:           registrations.DefaultRules(),
	}
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	return NewRouter(RouterDeps{
		Config: config.Config{
			CORSAllowOrigin: []string{"http://localhost:5173"},
			IntakeRate:      rate,
			IntakeBurst:     burst,
			TrustedProxies:  trusted,
		},
		Registrations: registrations.NewHandler(svc, 0),
		Health:        health.NewService(nil),
		Limiter:       middleware.NewRateLimiter(func() time.Time { return now }),
	})
}

func completeForm(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := [][2]string{
		{"studentName", "Aina Binti Ahmad"},
		{"ic", "180101-10-1234"},
		{"dateOfBirth", "2018-01-01"},
		{"guardianName", "Ahmad Bin Ali"},
		{"guardianPhone", "0123456789"},
		{"guardianEmail", "ahmad@example.com"},
		{"guardianIc", "850101-10-5678"},
		{"centreId", "c-1"},
		{"centreName", "Taman Centre"},
		{"educationLevel", "preschool"},
		{"subsidyCategory", "b40"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, doc := range []string{"birth_cert", "student_ic", "guardian_ic", "address_proof"} {
		part, err := w.CreateFormFile(doc, doc+".pdf")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		if _, err := part.Write([]byte("%PDF-1.4 " + doc)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, 0, 0)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload health.Status
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.OK {
		t.Fatalf("expected ok=true")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, 0, 0)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestSubmitThenLookup(t *testing.T) {
	router := newTestRouter(t, 0, 0)

	body, contentType := completeForm(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/register/applications", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var conf registrations.Confirmation
	if err := json.NewDecoder(resp.Body).Decode(&conf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if conf.ApplicationRef == "" || conf.DocumentCount != 4 {
		t.Fatalf("unexpected confirmation: %+v", conf)
	}

	lookup := httptest.NewRecorder()
	router.ServeHTTP(lookup, httptest.NewRequest(http.MethodGet, "/api/v1/register/applications/"+conf.ApplicationRef, nil))
	if lookup.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", lookup.Code)
	}

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/register/applications/REG-NOPE", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}

func sendEmptySubmission(router http.Handler, forwardedFor string) int {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/register/applications", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp.Code
}

func TestIntakeRateLimitedPerClient(t *testing.T) {
	// httptest requests arrive from 192.0.2.1.
	router := newTestRouter(t, 1, 1, "192.0.2.1")

	send := func(ip string) int { return sendEmptySubmission(router, ip) }

	if code := send("198.51.100.1"); code != http.StatusBadRequest {
		t.Fatalf("first request expected 400, got %d", code)
	}
	if code := send("198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", code)
	}
	if code := send("198.51.100.2"); code != http.StatusBadRequest {
		t.Fatalf("other client expected 400, got %d", code)
	}
}

func TestIntakeRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	router := newTestRouter(t, 1, 1)

	if code := sendEmptySubmission(router, "198.51.100.1"); code != http.StatusBadRequest {
		t.Fatalf("first request expected 400, got %d", code)
	}
	if code := sendEmptySubmission(router, "198.51.100.2"); code != http.StatusTooManyRequests {
		t.Fatalf("rotated X-Forwarded-For expected 429, got %d", code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
