package model

// SocialAccount links an external OAuth identity to exactly one local user.
// The (SocialName, SocialID) pair is unique; a row is created lazily on the
// first successful OAuth login for that pair.
//
// Fields:
//
//	ID         – primary key identifier.
//	UserID     – the linked local user.
//	SocialID   – provider-side subject identifier.
//	SocialName – provider name (e.g. "google", "yandex").
type SocialAccount struct {
	ID         uint64 // social_accounts.id
	UserID     uint64 // social_accounts.user_id
	SocialID   string // social_accounts.social_id
	SocialName string // social_accounts.social_name
	Timestamps
}
