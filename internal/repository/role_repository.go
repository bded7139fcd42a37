package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
)

// RoleRepo manages rows of the `roles` table. Protection of built-in role
// names is enforced by the handlers; the repository itself is policy-free.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// Create inserts a role and returns it with its assigned ID.
func (r *RoleRepo) Create(ctx context.Context, name, description string) (model.Role, error) {
	name = strings.TrimSpace(name)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name, description, is_active) VALUES (?,?,1)",
		name, description)
	if err != nil {
		if isDuplicate(err) {
			return model.Role{}, ErrAlreadyExists
		}
		return model.Role{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Role{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a role by id.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (model.Role, error) {
	return r.get(ctx, "id=?", id)
}

// GetByName fetches a role by its unique name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (model.Role, error) {
	return r.get(ctx, "name=?", strings.TrimSpace(name))
}

// List returns one page of roles ordered by creation time.
func (r *RoleRepo) List(ctx context.Context, page, perPage int) ([]model.Role, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,description,is_active,created_at,updated_at FROM roles ORDER BY created_at ASC LIMIT ? OFFSET ?",
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Update changes name and/or description. Empty arguments leave the current
// value in place (partial-update semantics).
func (r *RoleRepo) Update(ctx context.Context, id uint64, name, description string) (model.Role, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Role{}, err
	}
	if name = strings.TrimSpace(name); name == "" {
		name = current.Name
	}
	if description == "" {
		description = current.Description
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE roles SET name=?, description=? WHERE id=?", name, description, id)
	if err != nil {
		if isDuplicate(err) {
			return model.Role{}, ErrAlreadyExists
		}
		return model.Role{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes the role and its user assignments.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM roles_users WHERE role_id=?", id); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RoleRepo) get(ctx context.Context, where string, arg any) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,description,is_active,created_at,updated_at FROM roles WHERE "+where+" LIMIT 1",
		arg).Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Role{}, ErrNotFound
	}
	return role, err
}
