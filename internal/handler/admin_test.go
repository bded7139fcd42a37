package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

type memRoleStore struct {
	byID   map[uint64]model.Role
	nextID uint64
}

func newMemRoleStore(names ...string) *memRoleStore {
	s := &memRoleStore{byID: map[uint64]model.Role{}}
	for _, n := range names {
		_, _ = s.Create(context.Background(), n, "")
	}
	return s
}

func (s *memRoleStore) Create(_ context.Context, name, description string) (model.Role, error) {
	for _, r := range s.byID {
		if r.Name == name {
			return model.Role{}, repository.ErrAlreadyExists
		}
	}
	s.nextID++
	r := model.Role{ID: s.nextID, Name: name, Description: description, IsActive: true}
	s.byID[r.ID] = r
	return r, nil
}

func (s *memRoleStore) GetByID(_ context.Context, id uint64) (model.Role, error) {
	if r, ok := s.byID[id]; ok {
		return r, nil
	}
	return model.Role{}, repository.ErrNotFound
}

func (s *memRoleStore) List(_ context.Context, page, perPage int) ([]model.Role, error) {
	var out []model.Role
	for id := uint64(1); id <= s.nextID; id++ {
		if r, ok := s.byID[id]; ok {
			out = append(out, r)
		}
	}
	lo := (page - 1) * perPage
	if lo >= len(out) {
		return nil, nil
	}
	hi := lo + perPage
	if hi > len(out) {
		hi = len(out)
	}
	return out[lo:hi], nil
}

func (s *memRoleStore) Update(_ context.Context, id uint64, name, description string) (model.Role, error) {
	r, ok := s.byID[id]
	if !ok {
		return model.Role{}, repository.ErrNotFound
	}
	if name != "" {
		for oid, other := range s.byID {
			if oid != id && other.Name == name {
				return model.Role{}, repository.ErrAlreadyExists
			}
		}
		r.Name = name
	}
	if description != "" {
		r.Description = description
	}
	s.byID[id] = r
	return r, nil
}

func (s *memRoleStore) Delete(_ context.Context, id uint64) error {
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

type memAdminUsers struct {
	users *memUsers
	roles map[uint64][]uint64
}

func (m *memAdminUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return m.users.GetByID(ctx, id)
}

func (m *memAdminUsers) AddRole(_ context.Context, userID, roleID uint64) error {
	m.roles[userID] = append(m.roles[userID], roleID)
	return nil
}

func (m *memAdminUsers) HasRole(_ context.Context, userID uint64, roleName string) (bool, error) {
	u, ok := m.users.byID[userID]
	if !ok {
		return false, nil
	}
	return u.HasRole(roleName), nil
}

type adminFixture struct {
	h     *AdminHandler
	roles *memRoleStore
	users *memAdminUsers
	echo  *echo.Echo
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	mu := newMemUsers()
	id, err := mu.Create(context.Background(), "alice", "x", "")
	require.NoError(t, err)
	mu.byID[id].RoleNames = []string{model.RoleGuest}

	f := &adminFixture{
		roles: newMemRoleStore(model.RoleGuest, model.RoleStaff, model.RoleSuperuser),
		users: &memAdminUsers{users: mu, roles: map[uint64][]uint64{}},
		echo:  echo.New(),
	}
	f.h = NewAdminHandler(f.roles, f.users)
	return f
}

func (f *adminFixture) request(t *testing.T, method, body string, params map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := f.echo.NewContext(req, rec)
	var names, values []string
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func TestListRoles(t *testing.T) {
	f := newAdminFixture(t)
	c, rec := f.request(t, http.MethodGet, "", nil)
	require.NoError(t, f.h.ListRoles(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var views []roleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Len(t, views, 3)
}

func TestCreateRole(t *testing.T) {
	f := newAdminFixture(t)

	c, rec := f.request(t, http.MethodPost, `{"name":"editor","description":"content editor"}`, nil)
	require.NoError(t, f.h.CreateRole(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var view roleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "editor", view.Name)

	// Duplicate name answers 400.
	c, rec = f.request(t, http.MethodPost, `{"name":"editor"}`, nil)
	require.NoError(t, f.h.CreateRole(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty name answers 400.
	c, rec = f.request(t, http.MethodPost, `{"name":"  "}`, nil)
	require.NoError(t, f.h.CreateRole(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRoleProtected(t *testing.T) {
	f := newAdminFixture(t)

	// Renaming TO a protected name is rejected.
	c, rec := f.request(t, http.MethodPut, `{"name":"superuser"}`, map[string]string{"id": "1"})
	require.NoError(t, f.h.UpdateRole(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Renaming a protected role away is rejected too; staff has id 2.
	c, rec = f.request(t, http.MethodPut, `{"name":"crew"}`, map[string]string{"id": "2"})
	require.NoError(t, f.h.UpdateRole(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRole(t *testing.T) {
	f := newAdminFixture(t)
	created, err := f.roles.Create(context.Background(), "editor", "")
	require.NoError(t, err)

	c, rec := f.request(t, http.MethodPut, `{"name":"publisher","description":"can publish"}`,
		map[string]string{"id": strconv.FormatUint(created.ID, 10)})
	require.NoError(t, f.h.UpdateRole(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var view roleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "publisher", view.Name)
	assert.Equal(t, "can publish", view.Description)
}

func TestUpdateRoleNotFound(t *testing.T) {
	f := newAdminFixture(t)
	c, rec := f.request(t, http.MethodPut, `{"name":"x"}`, map[string]string{"id": "999"})
	require.NoError(t, f.h.UpdateRole(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRole(t *testing.T) {
	f := newAdminFixture(t)
	created, err := f.roles.Create(context.Background(), "temp", "")
	require.NoError(t, err)

	c, rec := f.request(t, http.MethodDelete, "", map[string]string{"id": strconv.FormatUint(created.ID, 10)})
	require.NoError(t, f.h.DeleteRole(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Protected roles cannot be deleted; superuser has id 3.
	c, rec = f.request(t, http.MethodDelete, "", map[string]string{"id": "3"})
	require.NoError(t, f.h.DeleteRole(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = f.request(t, http.MethodDelete, "", map[string]string{"id": "999"})
	require.NoError(t, f.h.DeleteRole(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHasRole(t *testing.T) {
	f := newAdminFixture(t)

	check := func(userID, roleName string) (int, bool) {
		c, rec := f.request(t, http.MethodGet, "", map[string]string{"id": userID, "name": roleName})
		require.NoError(t, f.h.HasRole(c))
		var resp struct {
			HasRole bool `json:"has_role"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		return rec.Code, resp.HasRole
	}

	code, has := check("1", model.RoleGuest)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, has)

	code, has = check("1", model.RoleSuperuser)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, has)

	code, _ = check("999", model.RoleGuest)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSetRole(t *testing.T) {
	f := newAdminFixture(t)

	c, rec := f.request(t, http.MethodPost, "", map[string]string{"id": "1", "role_id": "2"})
	require.NoError(t, f.h.SetRole(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint64{2}, f.users.roles[1])

	// Unknown user and unknown role both answer 404.
	c, rec = f.request(t, http.MethodPost, "", map[string]string{"id": "999", "role_id": "2"})
	require.NoError(t, f.h.SetRole(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = f.request(t, http.MethodPost, "", map[string]string{"id": "1", "role_id": "999"})
	require.NoError(t, f.h.SetRole(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
