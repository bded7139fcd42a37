package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
)

// SocialAccountRepo manages the links between external OAuth identities and
// local users. The (social_name, social_id) pair is unique.
type SocialAccountRepo struct{ DB *sql.DB }

func NewSocialAccountRepo(db *sql.DB) *SocialAccountRepo { return &SocialAccountRepo{DB: db} }

// Find looks up the link for a provider-side subject id.
func (r *SocialAccountRepo) Find(ctx context.Context, socialName, socialID string) (model.SocialAccount, error) {
	var acc model.SocialAccount
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,social_id,social_name,created_at,updated_at FROM social_accounts WHERE social_name=? AND social_id=? LIMIT 1",
		strings.ToLower(socialName), socialID).
		Scan(&acc.ID, &acc.UserID, &acc.SocialID, &acc.SocialName, &acc.CreatedAt, &acc.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.SocialAccount{}, ErrNotFound
	}
	return acc, err
}

// Create inserts a new link for the user.
func (r *SocialAccountRepo) Create(ctx context.Context, userID uint64, socialName, socialID string) (model.SocialAccount, error) {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO social_accounts (user_id, social_id, social_name) VALUES (?,?,?)",
		userID, socialID, strings.ToLower(socialName))
	if err != nil {
		if isDuplicate(err) {
			return model.SocialAccount{}, ErrAlreadyExists
		}
		return model.SocialAccount{}, err
	}
	return r.Find(ctx, socialName, socialID)
}
