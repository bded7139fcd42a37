package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
)

// UserRepo reads and writes rows of the `users` table and the roles_users
// join. Password hashing happens in the service layer; the repository only
// ever sees hashes.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID. Email may be empty; it is
// stored as NULL so the unique index only applies to real addresses.
func (r *UserRepo) Create(ctx context.Context, login, passwordHash, email string) (uint64, error) {
	login = strings.TrimSpace(login)
	var emailVal sql.NullString
	if e := strings.ToLower(strings.TrimSpace(email)); e != "" {
		emailVal = sql.NullString{String: e, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (login, email, password_hash, active) VALUES (?,?,?,1)",
		login, emailVal, passwordHash)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByLogin fetches a user by login, including assigned role names.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (model.User, error) {
	return r.get(ctx, "login=?", strings.TrimSpace(login))
}

// GetByID fetches a user by id, including assigned role names.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, "id=?", id)
}

// FindByLoginAndEmail returns the user matching both values, or ErrNotFound.
// Used by the OAuth bridge to attach a social identity to an existing local
// account.
func (r *UserRepo) FindByLoginAndEmail(ctx context.Context, login, email string) (model.User, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE login=? AND email=? LIMIT 1",
		strings.TrimSpace(login), strings.ToLower(strings.TrimSpace(email))).Scan(&id)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", passwordHash, id)
	return err
}

// AddRole assigns a role to a user. Assigning an already-held role is a
// no-op rather than an error.
func (r *UserRepo) AddRole(ctx context.Context, userID, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO roles_users (user_id, role_id) VALUES (?,?)",
		userID, roleID)
	return err
}

// HasRole reports whether the user holds the named role.
func (r *UserRepo) HasRole(ctx context.Context, userID uint64, roleName string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM roles_users ru
		 JOIN roles ro ON ro.id = ru.role_id
		 WHERE ru.user_id=? AND ro.name=?`,
		userID, roleName).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepo) get(ctx context.Context, where string, arg any) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,login,email,password_hash,active,last_login,created_at,updated_at FROM users WHERE "+where+" LIMIT 1",
		arg).Scan(&u.ID, &u.Login, &u.Email, &u.PasswordHash, &u.Active, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if u.RoleNames, err = r.roleNames(ctx, u.ID); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (r *UserRepo) roleNames(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ro.name FROM roles_users ru
		 JOIN roles ro ON ro.id = ru.role_id
		 WHERE ru.user_id=? AND ro.is_active=1
		 ORDER BY ro.name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
