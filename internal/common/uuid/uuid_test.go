package uuid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID7(t *testing.T) {
	id := UUID7()
	assert.NotEqual(t, uuid.Nil, id)
	assert.True(t, IsUUIDv7(id))
}

func TestNewRandom(t *testing.T) {
	id, err := NewRandom()
	assert.NoError(t, err)
	assert.NotEqual(t, Nil, id)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		require.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true

		id, err := Parse(token)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), id.Version())
	}
}

func TestParse(t *testing.T) {
	validUUID := "123e4567-e89b-12d3-a456-426614174000"
	id, err := Parse(validUUID)
	assert.NoError(t, err)
	assert.Equal(t, validUUID, id.String())

	_, err = Parse("invalid-uuid")
	assert.Error(t, err)
}
