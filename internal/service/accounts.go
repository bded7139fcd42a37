// Package service holds the token lifecycle state machine and the OAuth
// session bridge. Handlers stay thin: every login, refresh and logout path
// funnels through AccountsService so the rotation and revocation rules live
// in exactly one place.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mssola/useragent"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/storage"
	"github.com/iliyamo/auth-service/internal/utils"
)

var (
	// ErrBadCredentials means login lookup or password verification failed.
	// Handlers map it to 401 (or 400 for the old-password check).
	ErrBadCredentials = errors.New("bad credentials")

	// ErrBadAuthorization means the presented refresh token is invalid or
	// was already superseded. Detecting it tears down the whole session, so
	// the client has to authenticate from scratch. Maps to 401.
	ErrBadAuthorization = errors.New("bad authorization")

	// ErrDependencyUnavailable wraps token-storage transport failures at the
	// service boundary. Maps to 424; clients may retry after backoff.
	ErrDependencyUnavailable = errors.New("accounts dependency unavailable")
)

// TokenPair is the result of every issuance path.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RequestMeta carries the per-request attributes recorded into the auth
// history on login.
type RequestMeta struct {
	UserAgent string
	IP        string
}

// UserStore is the slice of the user repository the service needs.
type UserStore interface {
	GetByLogin(ctx context.Context, login string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// HistoryStore records login audit entries.
type HistoryStore interface {
	RecordLogin(ctx context.Context, entry model.AuthHistory) error
}

// LoginPublisher emits login events to the message bus. Publishing is
// fire-and-forget: failures are logged, never surfaced to the client.
type LoginPublisher interface {
	PublishLogin(ctx context.Context, ev queue.LoginEvent) error
}

// AccountsService implements credential verification and the token
// lifecycle: issuance, rotation with reuse detection, and invalidation.
type AccountsService struct {
	users        UserStore
	history      HistoryStore
	tokens       storage.TokenStorage
	publisher    LoginPublisher // optional
	jwtSecret    string
	accessTTL    time.Duration
	refreshTTL   time.Duration
	blacklistTTL time.Duration // cap for blacklist entries; 0 means accessTTL
	bcryptCost   int
}

// NewAccountsService wires the service. publisher may be nil when no message
// bus is configured.
func NewAccountsService(
	users UserStore,
	history HistoryStore,
	tokens storage.TokenStorage,
	publisher LoginPublisher,
	jwtSecret string,
	accessTTL, refreshTTL, blacklistTTL time.Duration,
	bcryptCost int,
) *AccountsService {
	return &AccountsService{
		users:        users,
		history:      history,
		tokens:       tokens,
		publisher:    publisher,
		jwtSecret:    jwtSecret,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		blacklistTTL: blacklistTTL,
		bcryptCost:   bcryptCost,
	}
}

// AuthorizedUser looks a user up by login and verifies the password.
// Unknown login and wrong password are indistinguishable to the caller.
func (s *AccountsService) AuthorizedUser(ctx context.Context, login, password string) (model.User, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		return model.User{}, ErrBadCredentials
	}
	if !utils.VerifyPassword(user.PasswordHash, password) {
		return model.User{}, ErrBadCredentials
	}
	return user, nil
}

// IssueTokenPair is the single issuance point. It mints a fresh access token
// carrying the authorization claims and a fresh refresh token with a new
// random jti, then stores that jti as the user's current refresh pointer.
// Overwriting the pointer is what invalidates the previously issued refresh
// token.
func (s *AccountsService) IssueTokenPair(ctx context.Context, user *model.User) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.jwtSecret, user, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.jwtSecret, user.ID, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.tokens.SetRefreshToken(ctx, refresh.JTI, user.ID); err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	return TokenPair{AccessToken: access.Token, RefreshToken: refresh.Token}, nil
}

// RefreshTokenPair validates the presented refresh jti and rotates the pair.
// An invalid or superseded jti means reuse: the stored pointer is wiped so
// the whole session dies, not just the reused token, and the caller gets
// ErrBadAuthorization. The validate-then-set sequence is not atomic against
// a concurrent refresh with the same still-valid token; the later write wins
// and the loser's pair fails on next use.
func (s *AccountsService) RefreshTokenPair(ctx context.Context, user *model.User, presentedJTI string) (TokenPair, error) {
	err := s.tokens.ValidateRefreshToken(ctx, presentedJTI, user.ID)
	switch {
	case errors.Is(err, storage.ErrInvalidToken):
		if delErr := s.tokens.InvalidateCurrentRefreshToken(ctx, user.ID); delErr != nil {
			return TokenPair{}, fmt.Errorf("%w: %v", ErrDependencyUnavailable, delErr)
		}
		return TokenPair{}, ErrBadAuthorization
	case err != nil:
		return TokenPair{}, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	return s.IssueTokenPair(ctx, user)
}

// Login records the audit entry, updates last_login and issues a token pair.
// The history write is transactional with the login: if it fails the login
// fails. The bus event afterwards is best-effort.
func (s *AccountsService) Login(ctx context.Context, user *model.User, meta RequestMeta) (TokenPair, error) {
	entry := s.entryFor(user, meta)
	if err := s.history.RecordLogin(ctx, entry); err != nil {
		return TokenPair{}, fmt.Errorf("record auth history: %w", err)
	}

	pair, err := s.IssueTokenPair(ctx, user)
	if err != nil {
		return TokenPair{}, err
	}

	if s.publisher != nil {
		ev := queue.LoginEvent{
			UserID:   user.ID,
			Login:    user.Login,
			IPAddr:   meta.IP,
			Platform: string(entry.Platform),
			Device:   entry.Device,
			LoginAt:  time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.publisher.PublishLogin(ctx, ev); err != nil {
			log.Printf("accounts: publish login event for user %d: %v", user.ID, err)
		}
	}
	return pair, nil
}

// Logout atomically blacklists the access token and clears the refresh
// pointer. remaining is the access token's leftover validity; the blacklist
// entry expires with it.
func (s *AccountsService) Logout(ctx context.Context, accessJTI string, userID uint64, remaining time.Duration) error {
	limit := s.blacklistTTL
	if limit <= 0 {
		limit = s.accessTTL
	}
	if remaining > limit {
		remaining = limit
	}
	if err := s.tokens.InvalidateTokenPair(ctx, accessJTI, userID, remaining); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	return nil
}

// UpdatePassword verifies the old password, stores the new hash and tears
// down the current session so stolen tokens die with the old password.
// A wrong old password changes nothing and triggers no logout.
func (s *AccountsService) UpdatePassword(ctx context.Context, user *model.User, oldPassword, newPassword, accessJTI string, remaining time.Duration) error {
	if !utils.VerifyPassword(user.PasswordHash, oldPassword) {
		return ErrBadCredentials
	}
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	return s.Logout(ctx, accessJTI, user.ID, remaining)
}

// entryFor classifies the user agent into pc/mobile/tablet and derives a
// device label for the audit record.
func (s *AccountsService) entryFor(user *model.User, meta RequestMeta) model.AuthHistory {
	ua := useragent.New(meta.UserAgent)

	platform := model.PlatformPC
	lowered := strings.ToLower(meta.UserAgent)
	switch {
	case strings.Contains(lowered, "ipad") || strings.Contains(lowered, "tablet"):
		platform = model.PlatformTablet
	case ua.Mobile():
		platform = model.PlatformMobile
	}

	device := ua.Platform()
	if os := ua.OS(); os != "" {
		if device != "" {
			device += " / "
		}
		device += os
	}
	if device == "" {
		device = "unknown"
	}

	return model.AuthHistory{
		UserID:    user.ID,
		UserAgent: meta.UserAgent,
		IPAddr:    meta.IP,
		Device:    device,
		Platform:  platform,
	}
}
