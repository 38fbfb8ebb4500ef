package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bcnelson/host-dashboard/internal/auth"
	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/rs/zerolog/log"
)

// Auth creates authentication middleware for Bearer API keys.
func Auth(keys *auth.KeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"code":401,"message":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			apiKey, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				http.Error(w, `{"code":401,"message":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			key, err := keys.Verify(r.Context(), apiKey)
			if errors.Is(err, domain.ErrUnauthorized) {
				http.Error(w, `{"code":401,"message":"invalid API key"}`, http.StatusUnauthorized)
				return
			}
			if err != nil {
				log.Error().Err(err).Msg("API key verification failed")
				http.Error(w, `{"code":500,"message":"internal server error"}`, http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAPIKey(r.Context(), key)))
		})
	}
}
