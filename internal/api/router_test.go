package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/Priya8975/event-registry/internal/engine"
	"github.com/Priya8975/event-registry/internal/identity"
	"github.com/Priya8975/event-registry/internal/registry"
	"github.com/Priya8975/event-registry/internal/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	owner domain.Principal = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
	alice domain.Principal = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
	bob   domain.Principal = "ST2JHG361ZXG51QTKY2NQCVBPPRRE2KZB1HR05NNC"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	testIssuer = "event-registry-test"
)

type testServer struct {
	handler http.Handler
	issuer  *identity.Issuer
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestServer(t *testing.T, limiter *engine.RateLimiter) *testServer {
	t.Helper()

	st := store.NewMemory()
	if err := st.Init(context.Background(), owner); err != nil {
		t.Fatalf("init store: %v", err)
	}

	logger := testLogger()
	reg := registry.New(st, logger)
	validator := identity.NewValidator(testSecret, testIssuer)

	return &testServer{
		handler: NewRouter(reg, st, validator, limiter, logger),
		issuer:  identity.NewIssuer(testSecret, testIssuer),
	}
}

// do sends a request as caller; an empty caller sends no Authorization header.
func (s *testServer) do(t *testing.T, caller domain.Principal, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		token, err := s.issuer.Issue(caller, time.Minute)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}

func registerBody() domain.RegisterEventRequest {
	return domain.RegisterEventRequest{Name: "Super Bowl LVI", Venue: "SoFi Stadium", Date: 1644796800}
}

func TestRouter_ExampleScenario(t *testing.T) {
	s := setupTestServer(t, nil)

	rec := s.do(t, owner, http.MethodPost, "/api/v1/organizers", domain.AddOrganizerRequest{Principal: alice})
	expectStatus(t, rec, http.StatusOK)
	if added := decodeBody[addOrganizerResponse](t, rec); !added.Added {
		t.Error("expected added=true")
	}

	rec = s.do(t, alice, http.MethodPost, "/api/v1/events", registerBody())
	expectStatus(t, rec, http.StatusCreated)
	if got := decodeBody[domain.RegisterEventResponse](t, rec); got.ID != 1 {
		t.Fatalf("event id = %d, want 1", got.ID)
	}

	rec = s.do(t, bob, http.MethodPost, "/api/v1/events/1/verify", nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec = s.do(t, alice, http.MethodPost, "/api/v1/events/1/verify", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[verifyEventResponse](t, rec); !got.Verified {
		t.Error("expected verified=true")
	}

	rec = s.do(t, "", http.MethodGet, "/api/v1/events/1", nil)
	expectStatus(t, rec, http.StatusOK)
	e := decodeBody[domain.Event](t, rec)
	if e.Name != "Super Bowl LVI" || e.Venue != "SoFi Stadium" || e.Date != 1644796800 {
		t.Errorf("unexpected event fields: %+v", e)
	}
	if e.Organizer != alice {
		t.Errorf("organizer = %q, want %q", e.Organizer, alice)
	}
	if !e.Verified {
		t.Error("event should be verified")
	}
}

func TestRouter_VerifiedIsTotal(t *testing.T) {
	s := setupTestServer(t, nil)

	rec := s.do(t, "", http.MethodGet, "/api/v1/events/999/verified", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[verifyEventResponse](t, rec); got.Verified || got.ID != 999 {
		t.Errorf("unexpected response: %+v", got)
	}

	// get-event on the same id is strict
	rec = s.do(t, "", http.MethodGet, "/api/v1/events/999", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestRouter_WritesRequireAuthentication(t *testing.T) {
	s := setupTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "register", method: http.MethodPost, path: "/api/v1/events", body: registerBody()},
		{name: "verify", method: http.MethodPost, path: "/api/v1/events/1/verify"},
		{name: "add organizer", method: http.MethodPost, path: "/api/v1/organizers", body: domain.AddOrganizerRequest{Principal: alice}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, "", tt.method, tt.path, tt.body)
			expectStatus(t, rec, http.StatusUnauthorized)
		})
	}
}

func TestRouter_InvalidToken(t *testing.T) {
	s := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/1/verified", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestRouter_ErrorMapping(t *testing.T) {
	s := setupTestServer(t, nil)

	tests := []struct {
		name       string
		caller     domain.Principal
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{name: "stranger registers", caller: bob, method: http.MethodPost, path: "/api/v1/events", body: registerBody(), wantStatus: http.StatusForbidden},
		{name: "stranger adds organizer", caller: bob, method: http.MethodPost, path: "/api/v1/organizers", body: domain.AddOrganizerRequest{Principal: bob}, wantStatus: http.StatusForbidden},
		{name: "verify missing", caller: owner, method: http.MethodPost, path: "/api/v1/events/7/verify", wantStatus: http.StatusNotFound},
		{name: "verify missing as stranger", caller: bob, method: http.MethodPost, path: "/api/v1/events/7/verify", wantStatus: http.StatusNotFound},
		{name: "non-integer id", caller: "", method: http.MethodGet, path: "/api/v1/events/abc", wantStatus: http.StatusBadRequest},
		{name: "empty name", caller: owner, method: http.MethodPost, path: "/api/v1/events", body: domain.RegisterEventRequest{Venue: "x", Date: 1}, wantStatus: http.StatusBadRequest},
		{name: "unknown field", caller: owner, method: http.MethodPost, path: "/api/v1/events", body: map[string]any{"name": "a", "venue": "b", "date": 1, "extra": true}, wantStatus: http.StatusBadRequest},
		{name: "nul in name", caller: owner, method: http.MethodPost, path: "/api/v1/events", body: domain.RegisterEventRequest{Name: "Bowl\x00", Venue: "x", Date: 1}, wantStatus: http.StatusBadRequest},
		{name: "nul in principal", caller: owner, method: http.MethodPost, path: "/api/v1/organizers", body: domain.AddOrganizerRequest{Principal: "a\x00b"}, wantStatus: http.StatusBadRequest},
		{name: "invalid principal", caller: owner, method: http.MethodPost, path: "/api/v1/organizers", body: domain.AddOrganizerRequest{Principal: "two words"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.caller, tt.method, tt.path, tt.body)
			expectStatus(t, rec, tt.wantStatus)
			if got := decodeBody[errorResponse](t, rec); got.Error == "" {
				t.Error("error response should carry a message")
			}
		})
	}

	// none of the failures above advanced the counter
	rec := s.do(t, "", http.MethodGet, "/api/v1/registry", nil)
	expectStatus(t, rec, http.StatusOK)
	if st := decodeBody[domain.Stats](t, rec); st.LastEventID != 0 || st.Organizers != 0 {
		t.Errorf("state changed by failed calls: %+v", st)
	}
}

func TestRouter_Organizers(t *testing.T) {
	s := setupTestServer(t, nil)

	expectStatus(t, s.do(t, owner, http.MethodPost, "/api/v1/organizers", domain.AddOrganizerRequest{Principal: alice}), http.StatusOK)

	rec := s.do(t, "", http.MethodGet, "/api/v1/organizers", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[[]domain.Principal](t, rec); len(got) != 1 || got[0] != alice {
		t.Errorf("organizers = %v, want [%s]", got, alice)
	}

	tests := []struct {
		principal     domain.Principal
		wantOrganizer bool
		wantOwner     bool
	}{
		{principal: owner, wantOrganizer: true, wantOwner: true},
		{principal: alice, wantOrganizer: true},
		{principal: bob},
	}
	for _, tt := range tests {
		rec := s.do(t, "", http.MethodGet, "/api/v1/organizers/"+string(tt.principal), nil)
		expectStatus(t, rec, http.StatusOK)
		got := decodeBody[organizerRoleResponse](t, rec)
		if got.IsOrganizer != tt.wantOrganizer || got.IsOwner != tt.wantOwner {
			t.Errorf("%s: got %+v", tt.principal, got)
		}
	}
}

func TestRouter_RegistryState(t *testing.T) {
	s := setupTestServer(t, nil)

	expectStatus(t, s.do(t, owner, http.MethodPost, "/api/v1/events", registerBody()), http.StatusCreated)
	expectStatus(t, s.do(t, owner, http.MethodPost, "/api/v1/events", registerBody()), http.StatusCreated)
	expectStatus(t, s.do(t, owner, http.MethodPost, "/api/v1/events/2/verify", nil), http.StatusOK)

	rec := s.do(t, "", http.MethodGet, "/api/v1/registry", nil)
	expectStatus(t, rec, http.StatusOK)

	st := decodeBody[domain.Stats](t, rec)
	want := domain.Stats{Owner: owner, LastEventID: 2, TotalEvents: 2, VerifiedEvents: 1}
	if st != want {
		t.Errorf("stats = %+v, want %+v", st, want)
	}
}

func TestRouter_WriteRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := setupTestServer(t, engine.NewRateLimiter(client, 2, testLogger()))

	for i := 0; i < 2; i++ {
		expectStatus(t, s.do(t, owner, http.MethodPost, "/api/v1/events", registerBody()), http.StatusCreated)
	}
	expectStatus(t, s.do(t, owner, http.MethodPost, "/api/v1/events", registerBody()), http.StatusTooManyRequests)

	// reads are never limited
	expectStatus(t, s.do(t, owner, http.MethodGet, "/api/v1/events/1", nil), http.StatusOK)
}

func TestHealthHandler(t *testing.T) {
	s := setupTestServer(t, nil)

	rec := s.do(t, "", http.MethodGet, "/api/v1/health", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[HealthResponse](t, rec); got.Status != "healthy" {
		t.Errorf("status = %q, want healthy", got.Status)
	}

	rec = httptest.NewRecorder()
	HealthHandler(failingPinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	expectStatus(t, rec, http.StatusServiceUnavailable)
	if !strings.Contains(rec.Body.String(), "unreachable") {
		t.Errorf("body should report storage unreachable: %s", rec.Body.String())
	}
}
