package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/utils"
)

// dbTimeout bounds every database round-trip made from a handler.
const dbTimeout = 5 * time.Second

// AuthHandler bundles dependencies for the signup/login/refresh/logout
// endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts *service.AccountsService
	Users    service.OauthUserStore
	Roles    service.RoleStore
}

func NewAuthHandler(cfg config.Config, accounts *service.AccountsService, users service.OauthUserStore, roles service.RoleStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: accounts, Users: users, Roles: roles}
}

// ----- DTOs -----

type signupReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Email    string `json:"email"`
}
type loginReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
type userView struct {
	ID    uint64   `json:"id"`
	Login string   `json:"login"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
}

func viewOf(u model.User) userView {
	v := userView{ID: u.ID, Login: u.Login, Roles: u.RoleNames}
	if u.Email.Valid {
		v.Email = u.Email.String
	}
	return v
}

// requestMeta extracts the attributes recorded into the auth history.
func requestMeta(c echo.Context) service.RequestMeta {
	return service.RequestMeta{
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	}
}

// Signup creates a user with the default guest role. Duplicate login or
// email answers 400, matching the uniqueness-violation policy.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "login/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	uid, err := h.Users.Create(ctx, req.Login, hash, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	if guest, err := h.Roles.GetByName(ctx, model.RoleGuest); err == nil {
		if err := h.Users.AddRole(ctx, uid, guest.ID); err != nil {
			c.Logger().Warnf("signup: assign guest role to user %d: %v", uid, err)
		}
	} else {
		c.Logger().Warnf("signup: guest role lookup: %v", err)
	}

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusCreated, viewOf(user))
}

// Login verifies credentials, records the audit entry and returns a fresh
// token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Login) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "login/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	user, err := h.Accounts.AuthorizedUser(ctx, req.Login, req.Password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	pair, err := h.Accounts.Login(ctx, &user, requestMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrDependencyUnavailable) {
			return c.JSON(http.StatusFailedDependency, echo.Map{"error": "token storage unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Refresh rotates the token pair. The refresh token comes as a Bearer token;
// JWTRefresh middleware has already verified signature and expiry, leaving
// the jti-versus-pointer check to the accounts service. A reused token
// answers 401 and the whole session is gone.
func (h *AuthHandler) Refresh(c echo.Context) error {
	claims, ok := c.Get(middleware.CtxClaims).(*utils.TokenClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	user, err := h.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	pair, err := h.Accounts.RefreshTokenPair(ctx, &user, claims.JTI)
	switch {
	case errors.Is(err, service.ErrBadAuthorization):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	case errors.Is(err, service.ErrDependencyUnavailable):
		return c.JSON(http.StatusFailedDependency, echo.Map{"error": "token storage unavailable"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Logout blacklists the presented access token and clears the refresh
// pointer in one atomic step. Storage failure answers 424 and leaves the
// session untouched.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := c.Get(middleware.CtxClaims).(*utils.TokenClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Accounts.Logout(ctx, claims.JTI, claims.UserID, claims.Remaining()); err != nil {
		return c.JSON(http.StatusFailedDependency, echo.Map{"error": "token storage unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}
