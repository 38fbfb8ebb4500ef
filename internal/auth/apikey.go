package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/storage"
	"github.com/rs/zerolog/log"
)

// KeyVerifier checks dashboard API keys. The bootstrap key is accepted
// only while no keys have been created.
type KeyVerifier struct {
	store        storage.APIKeyStore
	bootstrapKey string
}

// NewKeyVerifier creates a KeyVerifier backed by store.
func NewKeyVerifier(store storage.APIKeyStore, bootstrapKey string) *KeyVerifier {
	return &KeyVerifier{store: store, bootstrapKey: bootstrapKey}
}

// Verify returns the key record for plaintext or an error wrapping
// domain.ErrUnauthorized.
func (v *KeyVerifier) Verify(ctx context.Context, plaintext string) (*domain.APIKey, error) {
	if plaintext == "" {
		return nil, fmt.Errorf("empty API key: %w", domain.ErrUnauthorized)
	}

	if v.bootstrapKey != "" {
		count, err := v.store.CountAPIKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting API keys: %w", err)
		}
		if count == 0 && ConstantTimeCompare(plaintext, v.bootstrapKey) {
			return domain.BootstrapAPIKey(), nil
		}
	}

	key, err := v.store.GetAPIKeyByHash(ctx, domain.HashAPIKey(plaintext))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid API key: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up API key: %w", err)
	}

	// Best effort; a failed timestamp update must not reject the request.
	if err := v.store.UpdateAPIKeyLastUsed(context.WithoutCancel(ctx), key.ID); err != nil {
		log.Warn().Err(err).Str("key_id", key.ID).Msg("Could not update API key last used time")
	}
	return key, nil
}

type contextKey struct{}

// WithAPIKey returns a context carrying the authenticated key.
func WithAPIKey(ctx context.Context, key *domain.APIKey) context.Context {
	return context.WithValue(ctx, contextKey{}, key)
}

// APIKeyFromContext returns the authenticated key, or nil.
func APIKeyFromContext(ctx context.Context) *domain.APIKey {
	key, _ := ctx.Value(contextKey{}).(*domain.APIKey)
	return key
}
