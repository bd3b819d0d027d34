package auth

import (
	"context"
	"net/http"

	"ms-lounge/internal/logger"
)

type contextKey string

const staffIDKey contextKey = "staff_id"

// Middleware rejects requests without a valid staff token and stores the
// staff id in the request context.
func Middleware(issuer *Issuer, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Parse(rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", err.Error())
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), staffIDKey, claims.StaffID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin lets through only staff ids accepted by isAdmin.
// It must run after Middleware.
func RequireAdmin(isAdmin func(int64) bool, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			staffID, ok := StaffID(r.Context())
			if !ok || !isAdmin(staffID) {
				log.LogSecurity("FORBIDDEN", r.Method+" "+r.URL.Path)
				http.Error(w, "admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StaffID returns the authenticated staff id stored by Middleware.
func StaffID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(staffIDKey).(int64)
	return id, ok
}

// WithStaffID stores a staff id in ctx, for callers that authenticate elsewhere.
func WithStaffID(ctx context.Context, staffID int64) context.Context {
	return context.WithValue(ctx, staffIDKey, staffID)
}
