package domain

import "time"

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	SignedInAt time.Time `json:"signedInAt"`
}
