package identity

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	testIssuer = "event-registry-test"
)

const alice domain.Principal = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestIssueAndValidate(t *testing.T) {
	token, err := NewIssuer(testSecret, testIssuer).Issue(alice, time.Minute)
	require.NoError(t, err)

	p, err := NewValidator(testSecret, testIssuer).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, alice, p)
}

func TestValidate_Rejects(t *testing.T) {
	iss := NewIssuer(testSecret, testIssuer)
	expired := NewIssuer(testSecret, testIssuer)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	good, err := iss.Issue(alice, time.Minute)
	require.NoError(t, err)
	old, err := expired.Issue(alice, time.Minute)
	require.NoError(t, err)
	otherIssuer, err := NewIssuer(testSecret, "someone-else").Issue(alice, time.Minute)
	require.NoError(t, err)
	otherKey, err := NewIssuer([]byte("fedcba9876543210fedcba9876543210"), testIssuer).Issue(alice, time.Minute)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  testIssuer,
		Subject: string(alice),
	}).SignedString(testSecret)
	require.NoError(t, err)

	blankSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Subject:   "has space",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "tampered", token: good + "x"},
		{name: "expired", token: old},
		{name: "wrong issuer", token: otherIssuer},
		{name: "wrong key", token: otherKey},
		{name: "no expiry", token: noExp},
		{name: "invalid subject", token: blankSubject},
	}

	v := NewValidator(testSecret, testIssuer)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestIssue_InvalidPrincipal(t *testing.T) {
	_, err := NewIssuer(testSecret, testIssuer).Issue("", time.Minute)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMiddleware(t *testing.T) {
	token, err := NewIssuer(testSecret, testIssuer).Issue(alice, time.Minute)
	require.NoError(t, err)

	var seen domain.Principal
	var authenticated bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, authenticated = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(NewValidator(testSecret, testIssuer), testLogger())(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantAuth   bool
	}{
		{name: "anonymous", header: "", wantStatus: http.StatusOK},
		{name: "valid bearer", header: "Bearer " + token, wantStatus: http.StatusOK, wantAuth: true},
		{name: "lowercase scheme", header: "bearer " + token, wantStatus: http.StatusOK, wantAuth: true},
		{name: "basic scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "missing token", header: "Bearer", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, authenticated = "", false

			req := httptest.NewRequest(http.MethodGet, "/api/v1/events/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAuth, authenticated)
			if tt.wantAuth {
				assert.Equal(t, alice, seen)
			}
		})
	}
}

func TestRequirePrincipal(t *testing.T) {
	handler := RequirePrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
	req = req.WithContext(WithPrincipal(req.Context(), alice))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
