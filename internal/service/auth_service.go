package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/repository"
	"github.com/iliyamo/table-order/internal/utils"
)

// AuthService authenticates staff and issues their access tokens.
type AuthService struct {
	admins AdminStore
	secret string
	ttl    time.Duration
	now    func() time.Time
	log    logrus.FieldLogger
}

// NewAuthService wires an AuthService.  ttl is the lifetime of issued
// admin tokens.
func NewAuthService(admins AdminStore, secret string, ttl time.Duration, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		admins: admins,
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
		log:    log.WithField("component", "auth"),
	}
}

// Login checks a username/password pair and returns a signed admin token.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (utils.AccessToken, *model.Admin, error) {
	a, err := s.admins.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrAdminNotFound) {
		s.log.WithField("username", username).Info("login for unknown admin")
		return utils.AccessToken{}, nil, ErrInvalidCredentials
	}
	if err != nil {
		return utils.AccessToken{}, nil, err
	}
	if !utils.VerifyPassword(a.PasswordHash, password) {
		s.log.WithField("admin_id", a.ID).Info("login with wrong password")
		return utils.AccessToken{}, nil, ErrInvalidCredentials
	}
	tok, err := s.IssueAdminToken(a)
	if err != nil {
		return utils.AccessToken{}, nil, err
	}
	return tok, a, nil
}

// IssueAdminToken signs a token carrying the admin's id, username and
// store.
func (s *AuthService) IssueAdminToken(a *model.Admin) (utils.AccessToken, error) {
	return utils.NewAdminToken(s.secret, a.ID, a.Username, a.StoreID, s.ttl, s.now())
}

// VerifyAdminToken validates a raw bearer token.  It returns
// ErrTokenExpired or ErrInvalidToken on failure.
func (s *AuthService) VerifyAdminToken(raw string) (utils.AdminClaims, error) {
	return utils.ParseAdminToken(s.secret, raw, s.now)
}
