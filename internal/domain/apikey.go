package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// APIKeyPrefix starts every generated dashboard API key.
const APIKeyPrefix = "hd_"

// APIKey represents an API key for authentication.
// The actual key is only returned once on creation.
type APIKey struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	KeyHash    string     `json:"-" db:"key_hash"`
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// NewAPIKey generates a key record and returns it with the plaintext key.
// The plaintext is never stored.
func NewAPIKey(name string) (*APIKey, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", err
	}

	plaintext := APIKeyPrefix + hex.EncodeToString(buf)
	return &APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		KeyHash:   HashAPIKey(plaintext),
		KeyPrefix: plaintext[:len(APIKeyPrefix)+8],
		CreatedAt: time.Now(),
	}, plaintext, nil
}

// HashAPIKey returns the SHA-256 hex digest used to look a key up.
// API keys are high-entropy random strings, so a fast hash is enough.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// BootstrapAPIKey is the synthetic identity used when the bootstrap key is accepted.
func BootstrapAPIKey() *APIKey {
	return &APIKey{ID: "bootstrap", Name: "Bootstrap Key"}
}

// CreateAPIKeyRequest is the request body for creating an API key.
type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

// CreateAPIKeyResponse is returned when creating an API key.
// The key is only shown once.
type CreateAPIKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
}
