package utils // package utils provides helper functions for token creation and parsing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
	"github.com/google/uuid"       // uuid generates the jti embedded in every token

	"github.com/iliyamo/auth-service/internal/model"
)

// Token type claim values.  Refresh tokens are only accepted on the refresh
// endpoint and access tokens everywhere else, so the two must be
// distinguishable after parsing.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned by ParseToken for anything that fails
// signature, expiry or shape checks.
var ErrInvalidToken = errors.New("invalid token")

// IssuedToken is a freshly signed JWT along with the identifiers the caller
// needs to track it: the jti used as the storage key and the expiry used for
// TTL bookkeeping.
type IssuedToken struct {
	Token string    // the serialized JWT string
	JTI   string    // unique token identifier, also embedded as the "jti" claim
	Exp   time.Time // UTC expiration time
}

// TokenClaims is the verified, typed view of a parsed token.
type TokenClaims struct {
	UserID    uint64
	JTI       string
	TokenType string
	IsAdmin   bool
	Roles     []string
	ExpiresAt time.Time
}

// Remaining returns how long the token is still valid for.  Negative values
// mean the token already expired.
func (c *TokenClaims) Remaining() time.Duration {
	return time.Until(c.ExpiresAt)
}

// NewAccessToken builds and signs a short-lived HS256 JWT for a user.  The
// authorization claims (is_admin, roles) are embedded at issuance time so
// per-request admin checks need no database lookup.
func NewAccessToken(secret string, user *model.User, ttl time.Duration) (IssuedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub":      user.ID,
		"jti":      jti,
		"typ":      TokenTypeAccess,
		"is_admin": user.IsAdmin(),
		"roles":    user.RoleNames,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, JTI: jti, Exp: exp}, nil
}

// NewRefreshToken builds and signs a long-lived HS256 JWT carrying only the
// subject and a fresh random jti.  The jti is what the token storage keeps as
// the user's current-refresh-token pointer.
func NewRefreshToken(secret string, userID uint64, ttl time.Duration) (IssuedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub": userID,
		"jti": jti,
		"typ": TokenTypeRefresh,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, JTI: jti, Exp: exp}, nil
}

// ParseToken verifies the signature and expiry of a raw JWT and extracts the
// typed claims.  Tokens signed with anything but HMAC are rejected.
func ParseToken(secret, raw string) (*TokenClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	out := &TokenClaims{}

	switch sub := claims["sub"].(type) {
	case float64:
		out.UserID = uint64(sub)
	default:
		return nil, ErrInvalidToken
	}

	out.JTI, ok = claims["jti"].(string)
	if !ok || out.JTI == "" {
		return nil, ErrInvalidToken
	}
	out.TokenType, _ = claims["typ"].(string)
	out.IsAdmin, _ = claims["is_admin"].(bool)

	if rawRoles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range rawRoles {
			if name, ok := r.(string); ok {
				out.Roles = append(out.Roles, name)
			}
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}
	out.ExpiresAt = exp.Time

	return out, nil
}
