package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// RoleAdminStore is the role repository surface the admin API uses.
type RoleAdminStore interface {
	Create(ctx context.Context, name, description string) (model.Role, error)
	GetByID(ctx context.Context, id uint64) (model.Role, error)
	List(ctx context.Context, page, perPage int) ([]model.Role, error)
	Update(ctx context.Context, id uint64, name, description string) (model.Role, error)
	Delete(ctx context.Context, id uint64) error
}

// UserAdminStore is the user repository surface the admin API uses.
type UserAdminStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	AddRole(ctx context.Context, userID, roleID uint64) error
	HasRole(ctx context.Context, userID uint64, roleName string) (bool, error)
}

// AdminHandler serves the role-management API. All routes sit behind
// JWTAuth + RequireAdmin.
type AdminHandler struct {
	Roles RoleAdminStore
	Users UserAdminStore
}

func NewAdminHandler(roles RoleAdminStore, users UserAdminStore) *AdminHandler {
	return &AdminHandler{Roles: roles, Users: users}
}

type roleReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type roleView struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

func roleViewOf(r model.Role) roleView {
	return roleView{ID: r.ID, Name: r.Name, Description: r.Description, IsActive: r.IsActive}
}

// ListRoles returns one page of roles ordered by creation time.
func (h *AdminHandler) ListRoles(c echo.Context) error {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", defaultPageLimit)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	roles, err := h.Roles.List(ctx, page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	views := make([]roleView, 0, len(roles))
	for _, r := range roles {
		views = append(views, roleViewOf(r))
	}
	return c.JSON(http.StatusOK, views)
}

// CreateRole adds a new role. Duplicate names answer 400.
func (h *AdminHandler) CreateRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	role, err := h.Roles.Create(ctx, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create role failed"})
	}
	return c.JSON(http.StatusCreated, roleViewOf(role))
}

// UpdateRole renames a role or changes its description. Built-in roles are
// protected: they can be neither renamed nor targeted by a rename.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if model.IsProtectedRoleName(req.Name) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "this role is protected"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	current, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if model.IsProtectedRoleName(current.Name) && req.Name != "" && req.Name != current.Name {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "this role is protected"})
	}

	role, err := h.Roles.Update(ctx, id, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update role failed"})
	}
	return c.JSON(http.StatusOK, roleViewOf(role))
}

// DeleteRole removes a role. Built-in roles cannot be deleted.
func (h *AdminHandler) DeleteRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if model.IsProtectedRoleName(role.Name) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "this role is protected"})
	}

	if err := h.Roles.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete role failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// HasRole reports whether a user holds the named role.
func (h *AdminHandler) HasRole(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	roleName := c.Param("name")

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	has, err := h.Users.HasRole(ctx, userID, roleName)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"has_role": has})
}

// SetRole assigns a role to a user.
func (h *AdminHandler) SetRole(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	roleID, err := pathID(c, "role_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if _, err := h.Roles.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Users.AddRole(ctx, userID, roleID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign role failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role assigned"})
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
