package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte(strings.Repeat("k", 32))

// carryCookies copies the cookies set on rec onto a new request.
func carryCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionRoundTrip(t *testing.T) {
	sm, err := NewSessionManager(testKey, time.Hour, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	_, err = sm.Create(rec, Identity{Subject: "u1", Email: "ops@example.com"})
	require.NoError(t, err)

	got, err := sm.Get(carryCookies(rec))
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", got.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, time.Minute)
}

func TestSessionRejectsTamperingAndOtherKeys(t *testing.T) {
	sm, err := NewSessionManager(testKey, time.Hour, false)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	_, err = sm.Create(rec, Identity{Subject: "u1"})
	require.NoError(t, err)

	other, err := NewSessionManager([]byte(strings.Repeat("x", 32)), time.Hour, false)
	require.NoError(t, err)
	_, err = other.Get(carryCookies(rec))
	assert.Error(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: OIDCSessionCookieName, Value: "not-base64!"})
	_, err = sm.Get(req)
	assert.Error(t, err)

	_, err = sm.Get(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Error(t, err)
}

func TestSessionExpired(t *testing.T) {
	sm, err := NewSessionManager(testKey, -time.Minute, false)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	_, err = sm.Create(rec, Identity{Subject: "u1"})
	require.NoError(t, err)

	_, err = sm.Get(carryCookies(rec))
	assert.ErrorContains(t, err, "expired")
}

func TestSessionClear(t *testing.T) {
	sm, err := NewSessionManager(testKey, time.Hour, true)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	sm.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, OIDCSessionCookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.True(t, cookies[0].Secure)
}

func TestNewSessionManagerKeyLength(t *testing.T) {
	_, err := NewSessionManager([]byte("short"), time.Hour, false)
	assert.Error(t, err)
}

func TestStateStore(t *testing.T) {
	ss, err := NewStateStore(testKey, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	attempt, err := ss.Begin(rec)
	require.NoError(t, err)
	assert.NotEmpty(t, attempt.Nonce)
	assert.NotEqual(t, attempt.State, attempt.Nonce)

	out := httptest.NewRecorder()
	got, err := ss.Complete(out, carryCookies(rec), attempt.State)
	require.NoError(t, err)
	assert.Equal(t, attempt.Nonce, got.Nonce)

	// Completing always clears the pending attempt.
	cleared := out.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	_, err = ss.Complete(httptest.NewRecorder(), carryCookies(rec), "forged")
	assert.ErrorContains(t, err, "mismatch")
}

func TestStateCookieIsNotASession(t *testing.T) {
	ss, err := NewStateStore(testKey, false)
	require.NoError(t, err)
	sm, err := NewSessionManager(testKey, time.Hour, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	_, err = ss.Begin(rec)
	require.NoError(t, err)

	// Replay the state cookie under the session cookie name.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: OIDCSessionCookieName, Value: rec.Result().Cookies()[0].Value})
	_, err = sm.Get(req)
	assert.Error(t, err)
}

func TestAllowedDomains(t *testing.T) {
	p := &OIDCProvider{allowedDomains: []string{"Example.com"}}
	assert.NoError(t, p.allow("ops@example.COM"))
	assert.ErrorIs(t, p.allow("ops@evil.com"), domain.ErrUnauthorized)
	assert.ErrorIs(t, p.allow("no-at-sign"), domain.ErrUnauthorized)
	assert.ErrorIs(t, p.allow(""), domain.ErrUnauthorized)

	open := &OIDCProvider{}
	assert.NoError(t, open.allow("anyone@anywhere.org"))
	assert.Error(t, open.allow(""))
}

func TestKeyVerifier(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	v := NewKeyVerifier(store, "bootstrap-secret")

	t.Run("bootstrap accepted while no keys exist", func(t *testing.T) {
		key, err := v.Verify(ctx, "bootstrap-secret")
		require.NoError(t, err)
		assert.Equal(t, "bootstrap", key.ID)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := v.Verify(ctx, "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	key, plaintext, err := domain.NewAPIKey("ci")
	require.NoError(t, err)
	require.NoError(t, store.CreateAPIKey(ctx, key))

	t.Run("stored key", func(t *testing.T) {
		got, err := v.Verify(ctx, plaintext)
		require.NoError(t, err)
		assert.Equal(t, key.ID, got.ID)
		assert.NotNil(t, got.LastUsedAt)
	})

	t.Run("bootstrap rejected once keys exist", func(t *testing.T) {
		_, err := v.Verify(ctx, "bootstrap-secret")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := v.Verify(ctx, "hd_nope")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestAPIKeyContext(t *testing.T) {
	assert.Nil(t, APIKeyFromContext(context.Background()))
	key := domain.BootstrapAPIKey()
	assert.Same(t, key, APIKeyFromContext(WithAPIKey(context.Background(), key)))
}
