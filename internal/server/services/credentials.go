// Package services contains server-side business logic. This file implements
// CredentialService: registration, login, refresh-token rotation and logout.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/go-playground/validator/v10"
)

// refreshTokenBytes is the entropy of a refresh token before hex encoding.
const refreshTokenBytes = 32

var userNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return userNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// TokenCodec is the part of auth.TokenCodec the service needs.
type TokenCodec interface {
	Mint(user *models.User, roles []string) (string, time.Time, error)
	DecodeExpired(token string) (*auth.Claims, error)
}

type RegisterRequest struct {
	FullName        string `validate:"required,max=200"`
	Email           string `validate:"required,email,max=254"`
	UserName        string `validate:"required,min=3,max=64,username"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type RefreshRequest struct {
	AccessToken  string `validate:"required"`
	RefreshToken string `validate:"required"`
}

// UserSummary is the identity echoed back with every token pair.
type UserSummary struct {
	ID       string
	FullName string
	Email    string
	UserName string
	Roles    []string
}

// AuthResult bundles a short-lived access token and a long-lived refresh token.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         UserSummary
}

// CredentialService issues and rotates credentials. Every error it returns
// wraps one sentinel from internal/common; use common.PublicMessage before
// showing it to a client.
type CredentialService struct {
	users              users.Repository
	tokens             refreshtokens.Repository
	codec              TokenCodec
	validate           *validator.Validate
	logger             logging.Logger
	metrics            *metrics.Metrics
	now                timex.Clock
	refreshValidity    time.Duration
	revokeChainOnReuse bool
}

// NewCredentialService wires the service to the stores vended by m.
// metrics may be nil; a nil clock means the system clock.
func NewCredentialService(m repomanager.RepositoryManager, codec TokenCodec, cfg *config.Config,
	logger logging.Logger, mt *metrics.Metrics, clock timex.Clock) *CredentialService {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &CredentialService{
		users:              m.Users(),
		tokens:             m.RefreshTokens(),
		codec:              codec,
		validate:           newValidator(),
		logger:             logger.With("module", "credential_service"),
		metrics:            mt,
		now:                clock,
		refreshValidity:    cfg.RefreshTokenValidityDuration,
		revokeChainOnReuse: cfg.RevokeChainOnReuse,
	}
}

// Register creates the identity with the default role and signs it in.
func (s *CredentialService) Register(ctx context.Context, req RegisterRequest) (res *AuthResult, err error) {
	defer func() { s.metrics.Registration(err) }()

	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	user, err := s.users.Create(ctx, &models.User{
		FullName: req.FullName,
		Email:    req.Email,
		UserName: req.UserName,
		Roles:    []string{common.DefaultRole},
	}, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrDuplicateEmail),
			errors.Is(err, common.ErrDuplicateUsername),
			errors.Is(err, common.ErrWeakCredential):
			return nil, err
		}
		return nil, s.internal(ctx, "create user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return s.signIn(ctx, user)
}

// Login checks the password and starts a new session lineage: every refresh
// token the user still holds is revoked first.
func (s *CredentialService) Login(ctx context.Context, req LoginRequest) (res *AuthResult, err error) {
	defer func() { s.metrics.Login(err) }()

	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, s.internal(ctx, "get user by email", err)
	}
	// user is nil for unknown emails; the comparison still runs
	if !users.VerifyPassword(user, req.Password) {
		s.logger.Info(ctx, "login rejected", "known_user", user != nil)
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.logger.Info(ctx, "login rejected, account disabled", "user_id", user.ID)
		return nil, common.ErrAccountDisabled
	}

	return s.signIn(ctx, user)
}

func (s *CredentialService) signIn(ctx context.Context, user *models.User) (*AuthResult, error) {
	n, err := s.tokens.RevokeAllForUser(ctx, user.ID, s.now())
	if err != nil {
		return nil, s.internal(ctx, "revoke previous sessions", err)
	}
	if n > 0 {
		s.logger.Info(ctx, "previous sessions revoked", "user_id", user.ID, "count", n)
	}

	roles, err := s.users.ListRoles(ctx, user.ID)
	if err != nil {
		return nil, s.internal(ctx, "list roles", err)
	}

	next, err := s.newRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, next); err != nil {
		return nil, s.internal(ctx, "store refresh token", err)
	}

	return s.result(ctx, user, roles, next)
}

// Refresh trades an expired access token plus its refresh token for a new
// pair. The access token only tells who the caller claims to be; the refresh
// token must be active and belong to that same subject.
func (s *CredentialService) Refresh(ctx context.Context, req RefreshRequest) (res *AuthResult, err error) {
	defer func() { s.metrics.Refresh(err) }()

	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	claims, err := s.codec.DecodeExpired(req.AccessToken)
	if err != nil {
		s.logger.Info(ctx, "refresh rejected, bad access token", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidAccessToken, err)
	}
	subject := claims.UserID
	if subject == "" {
		s.logger.Info(ctx, "refresh rejected, no subject claim", "jti", claims.ID)
		return nil, common.ErrMissingSubjectClaim
	}

	now := s.now()
	current, err := s.tokens.Find(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "refresh rejected, unknown refresh token", "user_id", subject)
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, s.internal(ctx, "find refresh token", err)
	}

	if current.WasRotated() {
		s.reuseDetected(ctx, current, subject)
		return nil, common.ErrInvalidRefreshToken
	}
	if !current.IsActive(now) || current.UserID != subject {
		s.logger.Info(ctx, "refresh rejected",
			"user_id", subject, "owner_matches", current.UserID == subject, "state", current.State(now))
		return nil, common.ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, s.internal(ctx, "get user", err)
	}
	if !user.IsActive {
		s.logger.Info(ctx, "refresh rejected, account disabled", "user_id", subject)
		return nil, common.ErrInvalidRefreshToken
	}
	roles, err := s.users.ListRoles(ctx, subject)
	if err != nil {
		return nil, s.internal(ctx, "list roles", err)
	}

	next, err := s.newRefreshToken(subject)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Rotate(ctx, req.RefreshToken, next, now); err != nil {
		if errors.Is(err, common.ErrStaleToken) {
			s.logger.Info(ctx, "refresh lost rotation race", "user_id", subject)
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, s.internal(ctx, "rotate refresh token", err)
	}

	return s.result(ctx, user, roles, next)
}

// reuseDetected handles a rotated-away token being presented again. A
// legitimate client never does that, so the whole lineage is assumed stolen.
func (s *CredentialService) reuseDetected(ctx context.Context, token *models.RefreshToken, claimed string) {
	s.metrics.ReuseDetected()
	s.logger.Warn(ctx, "refresh token reuse detected",
		"user_id", token.UserID, "claimed_user_id", claimed, "revoke_chain", s.revokeChainOnReuse)

	if !s.revokeChainOnReuse {
		return
	}
	n, err := s.tokens.RevokeAllForUser(ctx, token.UserID, s.now())
	if err != nil {
		s.logger.Error(ctx, "revoke chain after reuse failed", "user_id", token.UserID, "error", err)
		return
	}
	s.logger.Warn(ctx, "sessions revoked after reuse", "user_id", token.UserID, "count", n)
}

// Logout revokes every active refresh token of userID. Repeating it is a no-op.
func (s *CredentialService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", common.ErrValidation)
	}
	n, err := s.tokens.RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return s.internal(ctx, "revoke sessions", err)
	}
	s.metrics.Logout()
	s.logger.Info(ctx, "logged out", "user_id", userID, "revoked", n)
	return nil
}

func (s *CredentialService) newRefreshToken(userID string) (*models.RefreshToken, error) {
	value, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return nil, s.internal(context.Background(), "generate refresh token", err)
	}
	now := s.now()
	return &models.RefreshToken{
		Token:     value,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshValidity),
	}, nil
}

func (s *CredentialService) result(ctx context.Context, user *models.User, roles []string, refresh *models.RefreshToken) (*AuthResult, error) {
	access, expiresAt, err := s.codec.Mint(user, roles)
	if err != nil {
		return nil, s.internal(ctx, "mint access token", err)
	}
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		ExpiresAt:    expiresAt,
		User: UserSummary{
			ID:       user.ID,
			FullName: user.FullName,
			Email:    user.Email,
			UserName: user.UserName,
			Roles:    roles,
		},
	}, nil
}

// internal logs err and hides it behind common.ErrorInternal.
func (s *CredentialService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op+" failed", "error", err)
	return common.ErrorInternal
}
