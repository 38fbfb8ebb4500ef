package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// errInvalidCookie is returned for cookies that fail to decode or decrypt.
var errInvalidCookie = errors.New("invalid cookie data")

// sealedCookie stores a JSON value in a cookie encrypted with AES-256-GCM.
// The cookie name is authenticated too, so one cookie's value cannot be
// replayed under another name sealed with the same key.
type sealedCookie struct {
	name   string
	aead   cipher.AEAD
	secure bool
}

func newSealedCookie(name string, key []byte, secure bool) (*sealedCookie, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("cookie key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &sealedCookie{name: name, aead: aead, secure: secure}, nil
}

// write encrypts v and sets it as the cookie value.
func (c *sealedCookie) write(w http.ResponseWriter, v any, maxAge int) error {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", c.name, err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := c.aead.Seal(nonce, nonce, plaintext, []byte(c.name))
	http.SetCookie(w, c.cookie(base64.RawURLEncoding.EncodeToString(ciphertext), maxAge))
	return nil
}

// read decrypts the cookie into v.
func (c *sealedCookie) read(r *http.Request, v any) error {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return fmt.Errorf("%s cookie not found: %w", c.name, err)
	}

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil || len(data) < c.aead.NonceSize() {
		return errInvalidCookie
	}

	nonce, ciphertext := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, []byte(c.name))
	if err != nil {
		return errInvalidCookie
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", c.name, err)
	}
	return nil
}

func (c *sealedCookie) clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

func (c *sealedCookie) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
	}
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
