package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// ErrOauthService wraps any failure while exchanging an external identity
// for a local session.
var ErrOauthService = errors.New("oauth login failed")

// ExternalIdentity is the verified assertion obtained from a provider after
// the code exchange: who the provider says the user is.
type ExternalIdentity struct {
	Provider  string
	SubjectID string
	Name      string
	Email     string
}

// SocialStore is the slice of the social-account repository the bridge needs.
type SocialStore interface {
	Find(ctx context.Context, socialName, socialID string) (model.SocialAccount, error)
	Create(ctx context.Context, userID uint64, socialName, socialID string) (model.SocialAccount, error)
}

// OauthUserStore extends the user lookup surface with the creation path used
// for first-time social logins.
type OauthUserStore interface {
	UserStore
	FindByLoginAndEmail(ctx context.Context, login, email string) (model.User, error)
	Create(ctx context.Context, login, passwordHash, email string) (uint64, error)
	AddRole(ctx context.Context, userID, roleID uint64) error
}

// RoleStore resolves role names; used to hand fresh OAuth users the default
// guest role.
type RoleStore interface {
	GetByName(ctx context.Context, name string) (model.Role, error)
}

// OauthService maps an external identity assertion onto a local user and
// funnels it into the normal login path.
type OauthService struct {
	users      OauthUserStore
	socials    SocialStore
	roles      RoleStore
	accounts   *AccountsService
	bcryptCost int
}

func NewOauthService(users OauthUserStore, socials SocialStore, roles RoleStore, accounts *AccountsService, bcryptCost int) *OauthService {
	return &OauthService{
		users:      users,
		socials:    socials,
		roles:      roles,
		accounts:   accounts,
		bcryptCost: bcryptCost,
	}
}

// Login resolves (or lazily creates) the local user for the identity and
// performs a regular login, returning a token pair. All inner failures
// surface as ErrOauthService.
func (s *OauthService) Login(ctx context.Context, identity ExternalIdentity, meta RequestMeta) (TokenPair, error) {
	user, err := s.resolveUser(ctx, identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrOauthService, err)
	}

	pair, err := s.accounts.Login(ctx, &user, meta)
	if err != nil {
		// Keep the dependency-failure kind visible so the handler can still
		// answer 424 instead of a generic 401.
		if errors.Is(err, ErrDependencyUnavailable) {
			return TokenPair{}, err
		}
		return TokenPair{}, fmt.Errorf("%w: %v", ErrOauthService, err)
	}
	return pair, nil
}

// resolveUser finds the linked user for (provider, subject), creating the
// local account and the link on first login. OAuth-created accounts get a
// random password that is never disclosed, so they cannot be used for direct
// credential login.
func (s *OauthService) resolveUser(ctx context.Context, identity ExternalIdentity) (model.User, error) {
	acc, err := s.socials.Find(ctx, identity.Provider, identity.SubjectID)
	if err == nil {
		return s.users.GetByID(ctx, acc.UserID)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, err
	}

	user, err := s.users.FindByLoginAndEmail(ctx, identity.Name, identity.Email)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.createUser(ctx, identity)
	}
	if err != nil {
		return model.User{}, err
	}

	if _, err := s.socials.Create(ctx, user.ID, identity.Provider, identity.SubjectID); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *OauthService) createUser(ctx context.Context, identity ExternalIdentity) (model.User, error) {
	hash, err := utils.HashPassword(utils.RandomPassword(), s.bcryptCost)
	if err != nil {
		return model.User{}, err
	}
	id, err := s.users.Create(ctx, identity.Name, hash, identity.Email)
	if err != nil {
		return model.User{}, err
	}
	if guest, err := s.roles.GetByName(ctx, model.RoleGuest); err == nil {
		if err := s.users.AddRole(ctx, id, guest.ID); err != nil {
			return model.User{}, err
		}
	}
	return s.users.GetByID(ctx, id)
}
