package utils

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/model"
)

const testSecret = "test-secret"

func testUser() *model.User {
	return &model.User{
		ID:        7,
		Login:     "alice",
		Email:     sql.NullString{String: "alice@example.com", Valid: true},
		RoleNames: []string{"guest", "staff"},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issued, err := NewAccessToken(testSecret, testUser(), time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.JTI)

	claims, err := ParseToken(testSecret, issued.Token)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), claims.UserID)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.True(t, claims.IsAdmin) // staff role makes the user an admin
	assert.Equal(t, []string{"guest", "staff"}, claims.Roles)
	assert.Greater(t, claims.Remaining(), time.Duration(0))
}

func TestAccessTokenNonAdmin(t *testing.T) {
	user := testUser()
	user.RoleNames = []string{"guest"}

	issued, err := NewAccessToken(testSecret, user, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, issued.Token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	issued, err := NewRefreshToken(testSecret, 7, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, issued.Token)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), claims.UserID)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Empty(t, claims.Roles)
}

func TestEachTokenGetsFreshJTI(t *testing.T) {
	a, err := NewRefreshToken(testSecret, 7, time.Hour)
	require.NoError(t, err)
	b, err := NewRefreshToken(testSecret, 7, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a.JTI, b.JTI)
}

func TestParseTokenWrongSecret(t *testing.T) {
	issued, err := NewAccessToken(testSecret, testUser(), time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenExpired(t *testing.T) {
	issued, err := NewAccessToken(testSecret, testUser(), -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken(testSecret, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
