package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StateCookieName is the cookie tracking an in-flight login.
const StateCookieName = "hostdash_oidc_state"

const loginAttemptTTL = 5 * time.Minute

// LoginAttempt binds an authorization redirect to its callback.
type LoginAttempt struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"exp"`
}

// StateStore keeps the pending login attempt in a sealed cookie.
type StateStore struct {
	cookie *sealedCookie
}

// NewStateStore creates a state store. key must be 32 bytes.
func NewStateStore(key []byte, secure bool) (*StateStore, error) {
	cookie, err := newSealedCookie(StateCookieName, key, secure)
	if err != nil {
		return nil, err
	}
	return &StateStore{cookie: cookie}, nil
}

// Begin starts a login attempt and remembers it on the client.
func (ss *StateStore) Begin(w http.ResponseWriter) (*LoginAttempt, error) {
	state, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}
	nonce, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	attempt := &LoginAttempt{State: state, Nonce: nonce, ExpiresAt: time.Now().Add(loginAttemptTTL)}
	if err := ss.cookie.write(w, attempt, int(loginAttemptTTL.Seconds())); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Complete consumes the pending attempt and checks it matches state.
// The cookie is cleared whether or not the check passes.
func (ss *StateStore) Complete(w http.ResponseWriter, r *http.Request, state string) (*LoginAttempt, error) {
	var attempt LoginAttempt
	err := ss.cookie.read(r, &attempt)
	ss.cookie.clear(w)
	if err != nil {
		return nil, err
	}

	if time.Now().After(attempt.ExpiresAt) {
		return nil, errors.New("login attempt expired")
	}
	if !ConstantTimeCompare(attempt.State, state) {
		return nil, errors.New("state mismatch")
	}
	return &attempt, nil
}
