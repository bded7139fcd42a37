package model

import (
	"database/sql"
	"time"
)

// Timestamps holds the audit columns shared by every mutable table.  The
// struct is embedded by value into each entity instead of being inherited,
// so entities stay plain records that scan directly from their rows.
type Timestamps struct {
	CreatedAt time.Time // <table>.created_at
	UpdatedAt time.Time // <table>.updated_at
}

// User represents a row in the `users` table.  Passwords are stored only as
// bcrypt hashes.  Email is optional (OAuth-created accounts may not share
// one) but unique when present.  RoleNames is populated by the repository
// from the roles_users join and is what ends up in the token's "roles" claim.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Login        – unique login name.
//	Email        – unique email address (nullable).
//	PasswordHash – bcrypt hashed password.
//	Active       – whether the account is active.
//	LastLogin    – timestamp of the last successful login (nullable).
//	RoleNames    – names of all roles assigned to the user.
type User struct {
	ID           uint64         // users.id
	Login        string         // users.login
	Email        sql.NullString // users.email
	PasswordHash string         // users.password_hash
	Active       bool           // users.active
	LastLogin    sql.NullTime   // users.last_login
	RoleNames    []string       // from roles_users join
	Timestamps
}

// IsAdmin reports whether the user carries an administrative role.  The
// result is embedded into access tokens at issuance time as the "is_admin"
// claim, so admin checks on later requests need no database round-trip.
func (u *User) IsAdmin() bool {
	for _, name := range u.RoleNames {
		if name == RoleSuperuser || name == RoleStaff {
			return true
		}
	}
	return false
}

// HasRole reports whether the user has the named role assigned.
func (u *User) HasRole(name string) bool {
	for _, n := range u.RoleNames {
		if n == name {
			return true
		}
	}
	return false
}
