package auth

import (
	"errors"
	"net/http"
	"time"
)

// OIDCSessionCookieName is the cookie holding a logged-in operator.
const OIDCSessionCookieName = "hostdash_oidc_session"

// Session is an operator login, sealed into a cookie.
type Session struct {
	Identity
	ExpiresAt time.Time `json:"exp"`
}

// SessionManager issues and reads operator sessions.
type SessionManager struct {
	cookie   *sealedCookie
	duration time.Duration
}

// NewSessionManager creates a session manager. key must be 32 bytes.
func NewSessionManager(key []byte, duration time.Duration, secure bool) (*SessionManager, error) {
	cookie, err := newSealedCookie(OIDCSessionCookieName, key, secure)
	if err != nil {
		return nil, err
	}
	return &SessionManager{cookie: cookie, duration: duration}, nil
}

// Create starts a session for id.
func (sm *SessionManager) Create(w http.ResponseWriter, id Identity) (*Session, error) {
	s := &Session{Identity: id, ExpiresAt: time.Now().Add(sm.duration)}
	if err := sm.cookie.write(w, s, int(sm.duration.Seconds())); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the request's session if it is present and unexpired.
func (sm *SessionManager) Get(r *http.Request) (*Session, error) {
	var s Session
	if err := sm.cookie.read(r, &s); err != nil {
		return nil, err
	}
	if time.Now().After(s.ExpiresAt) {
		return nil, errors.New("session expired")
	}
	return &s, nil
}

// Clear ends the session.
func (sm *SessionManager) Clear(w http.ResponseWriter) {
	sm.cookie.clear(w)
}
