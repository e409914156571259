package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer := NewIssuer("secret", time.Hour, clock)

	token, expires, err := issuer.Issue("tea-1", "teacher")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "tea-1", claims.Subject)
	assert.Equal(t, "teacher", claims.Role)

	_, err = NewIssuer("other", time.Hour, clock).Parse(token)
	assert.True(t, shared.IsUnauthorized(err))

	now = now.Add(2 * time.Hour)
	_, err = issuer.Parse(token)
	assert.True(t, shared.IsUnauthorized(err))
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret"))
}
