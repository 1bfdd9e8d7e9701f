package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.True(t, CheckPassword("s3cret-pass", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestNewToken(t *testing.T) {
	plain, hash, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, plain, 64)
	assert.Equal(t, HashToken(plain), hash)
	assert.NotEqual(t, plain, hash)

	other, _, err := NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, plain, other)
}
