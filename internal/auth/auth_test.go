package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-lounge/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T) *Issuer {
	issuer, err := NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) }
	return issuer
}

func TestIssueAndParse(t *testing.T) {
	issuer := newIssuer(t)

	token, expires, err := issuer.IssueStaffToken(777)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 13, 0, 0, 0, time.UTC), expires)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(777), claims.StaffID)
	assert.Equal(t, "777", claims.Subject)
}

func TestParseRejects(t *testing.T) {
	issuer := newIssuer(t)
	token, _, err := issuer.IssueStaffToken(1)
	require.NoError(t, err)

	other, err := NewIssuer("another-secret", time.Hour)
	require.NoError(t, err)
	other.now = issuer.now
	_, err = other.Parse(token)
	assert.Error(t, err)

	issuer.now = func() time.Time { return time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC) }
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = issuer.Parse("")
	assert.Error(t, err)

	_, err = NewIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	issuer := newIssuer(t)
	log := logger.NewLoggerWithWriter(io.Discard)
	token, _, err := issuer.IssueStaffToken(42)
	require.NoError(t, err)

	var seen int64
	handler := Middleware(issuer, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = StaffID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, int64(42), seen)
}

func TestRequireAdmin(t *testing.T) {
	log := logger.NewLoggerWithWriter(io.Discard)
	isAdmin := func(id int64) bool { return id == 1 }
	handler := RequireAdmin(isAdmin, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for id, want := range map[int64]int{1: http.StatusOK, 2: http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithStaffID(req.Context(), id))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "staff %d", id)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
