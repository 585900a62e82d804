/*
middleware.go - Authentication middleware

PURPOSE:
  Resolves the Bearer token into a user id and stores it in the request
  context. Handlers read the principal with currentUser(r); domain logic
  only ever sees plain ids.

SEE ALSO:
  - auth/jwt.go: Token issuing and parsing
  - server.go: Where the middleware is mounted
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/skillswap/booking-engine/auth"
	"github.com/skillswap/booking-engine/booking"
)

type contextKey string

const userIDKey contextKey = "userID"

// requireAuth rejects requests without a valid Bearer token and stores the
// authenticated user id in the request context.
func requireAuth(tokens *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required", booking.ErrNotAuthenticated)
				return
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token", nil)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, booking.UserID(claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// currentUser returns the authenticated user id, or "" when the request
// passed through without auth.
func currentUser(r *http.Request) booking.UserID {
	id, _ := r.Context().Value(userIDKey).(booking.UserID)
	return id
}
