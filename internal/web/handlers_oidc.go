package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/rs/zerolog/log"
)

func loginError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

// handleOIDCLogin initiates the OIDC login flow.
func (s *Server) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		http.Error(w, "OIDC authentication is not enabled", http.StatusNotFound)
		return
	}

	attempt, err := s.oidc.StateStore.Begin(w)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start OIDC login")
		loginError(w, r, "Failed to initiate login")
		return
	}

	http.Redirect(w, r, s.oidc.Provider.AuthCodeURL(attempt), http.StatusSeeOther)
}

// handleOIDCCallback handles the OIDC callback after authentication.
func (s *Server) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		http.Error(w, "OIDC authentication is not enabled", http.StatusNotFound)
		return
	}

	ctx := r.Context()
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		errDesc := query.Get("error_description")
		if errDesc == "" {
			errDesc = errParam
		}
		log.Warn().Str("error", errParam).Str("description", errDesc).Msg("OIDC provider returned error")
		loginError(w, r, errDesc)
		return
	}

	code := query.Get("code")
	if code == "" {
		loginError(w, r, "No authorization code received")
		return
	}

	attempt, err := s.oidc.StateStore.Complete(w, r, query.Get("state"))
	if err != nil {
		log.Warn().Err(err).Msg("OIDC state validation failed")
		loginError(w, r, "Invalid state parameter")
		return
	}

	id, err := s.oidc.Provider.Exchange(ctx, code, attempt.Nonce)
	if errors.Is(err, domain.ErrUnauthorized) {
		log.Warn().Err(err).Msg("OIDC identity rejected")
		loginError(w, r, "This account is not allowed to use the dashboard")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("OIDC token exchange failed")
		loginError(w, r, "Failed to complete authentication")
		return
	}

	session, err := s.oidc.SessionManager.Create(w, *id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create OIDC session")
		loginError(w, r, "Failed to create session")
		return
	}

	log.Info().Str("email", session.Email).Msg("OIDC login")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
