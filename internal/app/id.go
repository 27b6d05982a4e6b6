package app

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// newID produces a random identifier for entities.
// Isolated here so the ID strategy can evolve independently.
func newID() string {
	return uuid.NewString()
}

// newInviteToken produces an unguessable, URL-safe invitation token.
func newInviteToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
