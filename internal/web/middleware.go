package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/bcnelson/host-dashboard/internal/auth"
	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	sessionCookieName = "hostdash_session"
	sessionDuration   = 24 * time.Hour
)

// sessionAuth lets a request through with either an API key session
// cookie or a valid OIDC session; everything else goes to /login.
func (s *Server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if s.oidc != nil {
			if session, err := s.oidc.SessionManager.Get(r); err == nil {
				key := &domain.APIKey{ID: "oidc:" + session.Subject, Name: session.Email}
				next.ServeHTTP(w, r.WithContext(auth.WithAPIKey(ctx, key)))
				return
			}
		}

		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			s.redirectToLogin(w, r)
			return
		}

		key, err := s.keys.Verify(ctx, cookie.Value)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) {
				log.Error().Err(err).Msg("Session check failed")
			}
			clearSessionCookie(w)
			s.redirectToLogin(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithAPIKey(ctx, key)))
	})
}

// redirectToLogin also works for htmx requests, which do not follow 303s
// into a full page load.
func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// setSessionCookie sets the session cookie.
func setSessionCookie(w http.ResponseWriter, apiKey string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    apiKey,
		Path:     "/",
		MaxAge:   int(sessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookie clears the session cookie.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
