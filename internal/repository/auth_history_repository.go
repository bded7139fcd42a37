package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/auth-service/internal/model"
)

// AuthHistoryRepo appends and lists login audit records.
type AuthHistoryRepo struct{ DB *sql.DB }

func NewAuthHistoryRepo(db *sql.DB) *AuthHistoryRepo { return &AuthHistoryRepo{DB: db} }

// RecordLogin inserts the audit row and bumps the user's last_login inside
// one transaction. A failed history write must abort the whole login, so the
// two statements commit or roll back together.
func (r *AuthHistoryRepo) RecordLogin(ctx context.Context, entry model.AuthHistory) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO auth_history (user_id, user_agent, ip_addr, device, platform) VALUES (?,?,?,?,?)",
		entry.UserID, entry.UserAgent, entry.IPAddr, entry.Device, string(entry.Platform)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET last_login=UTC_TIMESTAMP() WHERE id=?", entry.UserID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListByUser returns one page of a user's login history, newest first.
func (r *AuthHistoryRepo) ListByUser(ctx context.Context, userID uint64, page, perPage int) ([]model.AuthHistory, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,user_agent,ip_addr,device,platform,created_at FROM auth_history WHERE user_id=? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AuthHistory
	for rows.Next() {
		var e model.AuthHistory
		var platform string
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserAgent, &e.IPAddr, &e.Device, &platform, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Platform = model.Platform(platform)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
