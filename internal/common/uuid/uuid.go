// Package uuid wraps github.com/google/uuid for the identifiers used by the connector:
// time-ordered UUIDv7 values for request ids and random UUIDv4 values for session tokens.
package uuid

import (
	"github.com/google/uuid"
)

// UUID represents a UUID, aliased from github.com/google/uuid.UUID
type UUID = uuid.UUID

// Nil is the zero UUID.
var Nil = uuid.Nil

// UUID7 generates a new UUIDv7. Returns Nil if the generator fails.
func UUID7() UUID {
	uuidv7, _ := uuid.NewV7()
	return uuidv7
}

// NewRandom returns a new time-ordered UUIDv7 and any error encountered during generation.
func NewRandom() (UUID, error) {
	return uuid.NewV7()
}

// NewToken returns a random UUIDv4 string suitable as an opaque session token.
// Tokens are not time ordered so that one token says nothing about the next.
func NewToken() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Parse parses a UUID string into a UUID value. Returns an error if the string is not a valid UUID.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// IsUUIDv7 reports whether the given UUID is a valid UUIDv7.
func IsUUIDv7(id UUID) bool {
	return id.Version() == uuid.Version(7)
}
