package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sparshsam/wager-ai-assistant/internal/constants"
)

// HashPassword derives a hex HMAC-SHA256 digest of the password keyed with
// the server secret.
func HashPassword(secret, password string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifyPassword(secret, password, hash string) bool {
	expected := HashPassword(secret, password)
	return hmac.Equal([]byte(expected), []byte(hash))
}

// NewSessionToken returns an opaque URL-safe session token.
func NewSessionToken() (string, error) {
	token, err := gonanoid.New(constants.SessionTokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return token, nil
}
