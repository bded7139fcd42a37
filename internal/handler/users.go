package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/utils"
)

// defaultPageLimit is the page size used when per_page is absent.
const defaultPageLimit = 5

// HistoryLister is the read side of the auth-history repository.
type HistoryLister interface {
	ListByUser(ctx context.Context, userID uint64, page, perPage int) ([]model.AuthHistory, error)
}

// UserHandler serves the authenticated self-service endpoints: profile,
// password change and login history.
type UserHandler struct {
	Accounts  *service.AccountsService
	Users     service.UserStore
	Histories HistoryLister
}

func NewUserHandler(accounts *service.AccountsService, users service.UserStore, histories HistoryLister) *UserHandler {
	return &UserHandler{Accounts: accounts, Users: users, Histories: histories}
}

type updatePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type historyView struct {
	UserAgent string    `json:"user_agent"`
	IPAddr    string    `json:"ip_addr"`
	Device    string    `json:"device"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// Me returns the authenticated user's identity as recorded in the token.
func (h *UserHandler) Me(c echo.Context) error {
	claims, ok := c.Get(middleware.CtxClaims).(*utils.TokenClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  claims.UserID,
		"is_admin": claims.IsAdmin,
		"roles":    claims.Roles,
	})
}

// UpdatePassword changes the caller's password after verifying the old one.
// A wrong old password answers 400 and leaves everything untouched; on
// success the current session is logged out so old tokens stop working.
func (h *UserHandler) UpdatePassword(c echo.Context) error {
	claims, ok := c.Get(middleware.CtxClaims).(*utils.TokenClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	var req updatePasswordReq
	if err := c.Bind(&req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "old_password/new_password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	user, err := h.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	err = h.Accounts.UpdatePassword(ctx, &user, req.OldPassword, req.NewPassword, claims.JTI, claims.Remaining())
	switch {
	case errors.Is(err, service.ErrBadCredentials):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "wrong password"})
	case errors.Is(err, service.ErrDependencyUnavailable):
		return c.JSON(http.StatusFailedDependency, echo.Map{"error": "token storage unavailable"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// History returns one page of the caller's login audit records, newest
// first. Pagination via ?page and ?per_page.
func (h *UserHandler) History(c echo.Context) error {
	claims, ok := c.Get(middleware.CtxClaims).(*utils.TokenClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", defaultPageLimit)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	entries, err := h.Histories.ListByUser(ctx, claims.UserID, page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	views := make([]historyView, 0, len(entries))
	for _, e := range entries {
		views = append(views, historyView{
			UserAgent: e.UserAgent,
			IPAddr:    e.IPAddr,
			Device:    e.Device,
			Platform:  string(e.Platform),
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"page": page, "per_page": perPage, "items": views})
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
