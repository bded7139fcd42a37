package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/storage"
	"github.com/iliyamo/auth-service/internal/utils"
)

const testSecret = "test-secret"

func newTestTokens(t *testing.T) (*storage.RedisTokenStorage, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return storage.NewRedisTokenStorage(client, time.Hour), m
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// invoke runs a request with the given Authorization header through the
// middleware chain and returns the recorder plus the echo context the
// handler saw.
func invoke(t *testing.T, mw echo.MiddlewareFunc, authHeader string, handler echo.HandlerFunc) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen echo.Context
	wrapped := mw(func(c echo.Context) error {
		seen = c
		return handler(c)
	})
	require.NoError(t, wrapped(c))
	return rec, seen
}

func accessToken(t *testing.T, roles ...string) utils.IssuedToken {
	t.Helper()
	user := &model.User{ID: 7, Login: "alice", RoleNames: roles}
	issued, err := utils.NewAccessToken(testSecret, user, time.Minute)
	require.NoError(t, err)
	return issued
}

func TestJWTAuthMissingHeader(t *testing.T) {
	tokens, _ := newTestTokens(t)
	rec, _ := invoke(t, JWTAuth(testSecret, tokens), "", okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthBadToken(t *testing.T) {
	tokens, _ := newTestTokens(t)
	rec, _ := invoke(t, JWTAuth(testSecret, tokens), "Bearer garbage", okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthValidTokenSetsContext(t *testing.T) {
	tokens, _ := newTestTokens(t)
	issued := accessToken(t, "guest")

	rec, seen := invoke(t, JWTAuth(testSecret, tokens), "Bearer "+issued.Token, okHandler)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, uint64(7), seen.Get(CtxUserID))
	assert.Equal(t, false, seen.Get(CtxIsAdmin))
	assert.Equal(t, []string{"guest"}, seen.Get(CtxRoles))
	claims, ok := seen.Get(CtxClaims).(*utils.TokenClaims)
	require.True(t, ok)
	assert.Equal(t, issued.JTI, claims.JTI)
}

func TestJWTAuthRejectsRefreshToken(t *testing.T) {
	tokens, _ := newTestTokens(t)
	issued, err := utils.NewRefreshToken(testSecret, 7, time.Hour)
	require.NoError(t, err)

	rec, _ := invoke(t, JWTAuth(testSecret, tokens), "Bearer "+issued.Token, okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRevokedToken(t *testing.T) {
	tokens, _ := newTestTokens(t)
	issued := accessToken(t, "guest")
	require.NoError(t, tokens.InvalidateTokenPair(t.Context(), issued.JTI, 7, time.Minute))

	rec, _ := invoke(t, JWTAuth(testSecret, tokens), "Bearer "+issued.Token, okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthFailsClosedWhenStorageDown(t *testing.T) {
	tokens, m := newTestTokens(t)
	issued := accessToken(t, "guest")
	m.Close()

	// Undecidable revocation state must not let the request through.
	rec, _ := invoke(t, JWTAuth(testSecret, tokens), "Bearer "+issued.Token, okHandler)
	assert.Equal(t, http.StatusFailedDependency, rec.Code)
}

func TestJWTRefreshAcceptsOnlyRefreshTokens(t *testing.T) {
	refresh, err := utils.NewRefreshToken(testSecret, 7, time.Hour)
	require.NoError(t, err)

	rec, seen := invoke(t, JWTRefresh(testSecret), "Bearer "+refresh.Token, okHandler)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(7), seen.Get(CtxUserID))

	access := accessToken(t, "guest")
	rec, _ = invoke(t, JWTRefresh(testSecret), "Bearer "+access.Token, okHandler)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()

	run := func(isAdmin any) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if isAdmin != nil {
			c.Set(CtxIsAdmin, isAdmin)
		}
		require.NoError(t, RequireAdmin()(okHandler)(c))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run(true))
	assert.Equal(t, http.StatusForbidden, run(false))
	assert.Equal(t, http.StatusForbidden, run(nil))
}
