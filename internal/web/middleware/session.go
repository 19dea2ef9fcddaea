package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/lexia/internal/core"
)

const sessionMaxAge = 30 * 24 * time.Hour

// Session assigns each browser a random id in cookieName and stores it in
// the request context. The id keys saved table state; it is not an
// authentication token. Malformed cookies are replaced.
func Session(cookieName string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}

			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(sessionMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(core.ContextWithSessionID(r.Context(), id)))
		})
	}
}
