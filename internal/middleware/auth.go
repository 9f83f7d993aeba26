package middleware

import (
	"net/http"

	"tokosnap-be/internal/auth"
	"tokosnap-be/internal/user"
	"tokosnap-be/internal/utils"
)

// AuthMiddleware is passive: a valid token attaches the user to the request
// context, anything else passes through anonymous. Handlers decide what
// requires a user.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := auth.ExtractAccessToken(r)
		if tokenStr == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := user.ParseJWT(tokenStr)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Email, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
