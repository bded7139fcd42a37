package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/storage"
	"github.com/iliyamo/auth-service/internal/utils"
)

// Context keys populated by the auth middlewares.
const (
	CtxClaims  = "claims"   // *utils.TokenClaims of the verified token
	CtxUserID  = "user_id"  // uint64 subject
	CtxIsAdmin = "is_admin" // bool admin claim
	CtxRoles   = "roles"    // []string role names
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and checks it against the revocation blacklist before letting the request
// through. A token that fails signature or expiry checks yields 401. If the
// blacklist cannot be consulted the request is undecidable and is rejected
// with 424 rather than silently allowed: the gate fails closed.
func JWTAuth(secret string, tokens storage.TokenStorage) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := bearerClaims(c, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			if claims.TokenType != utils.TokenTypeAccess {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access token required"})
			}

			revoked, err := tokens.IsAccessTokenRevoked(c.Request().Context(), claims.JTI)
			if err != nil {
				return c.JSON(http.StatusFailedDependency, echo.Map{"error": "token storage unavailable"})
			}
			if revoked {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
			}

			setClaims(c, claims)
			return next(c)
		}
	}
}

// JWTRefresh returns a middleware for the refresh endpoint: it accepts only
// refresh-type tokens. Validity against the stored pointer is checked by the
// accounts service, not here.
func JWTRefresh(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := bearerClaims(c, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			if claims.TokenType != utils.TokenTypeRefresh {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token required"})
			}
			setClaims(c, claims)
			return next(c)
		}
	}
}

// RequireAdmin rejects requests whose access token lacks the is_admin claim.
// The claim was embedded at issuance time, so no store lookup happens here.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			isAdmin, ok := c.Get(CtxIsAdmin).(bool)
			if !ok || !isAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

func bearerClaims(c echo.Context, secret string) (*utils.TokenClaims, error) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil, utils.ErrInvalidToken
	}
	return utils.ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
}

func setClaims(c echo.Context, claims *utils.TokenClaims) {
	c.Set(CtxClaims, claims)
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxIsAdmin, claims.IsAdmin)
	c.Set(CtxRoles, claims.Roles)
}
