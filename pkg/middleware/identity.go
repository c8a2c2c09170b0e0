package middleware

import (
	"net/http"
	"strings"

	"movie-catalog/pkg/utils"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUsername = "X-Username"
)

// Identity copies the caller asserted by the gateway headers into the
// request context. Authentication happens upstream of this service.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := utils.SetIdentity(r.Context(), utils.Identity{
				UserID:   userID,
				Username: strings.TrimSpace(r.Header.Get(HeaderUsername)),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity rejects requests without a caller identity.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetIdentity(r.Context()); !ok {
			utils.ResponseUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
