package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kbalyzer/kbalyzer-api/internal/auth"
	"github.com/kbalyzer/kbalyzer-api/internal/config"
	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/events"
	"github.com/kbalyzer/kbalyzer-api/internal/observability"
	"github.com/kbalyzer/kbalyzer-api/internal/repository"
	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

// AuthService coordinates the password and 2FA login steps and logout.
type AuthService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenManager
	totp       *auth.TOTP
	denylist   auth.Denylist
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	accessTTL  time.Duration
	totpTTL    time.Duration
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     *auth.PasswordHasher
	Tokens     *auth.TokenManager
	TOTP       *auth.TOTP
	Denylist   auth.Denylist
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	denylist := deps.Denylist
	if denylist == nil {
		denylist = auth.NoopDenylist{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		totp:       deps.TOTP,
		denylist:   denylist,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		accessTTL:  cfg.AccessTokenTTL(),
		totpTTL:    cfg.TOTPTokenTTL(),
	}
}

// Authenticate looks the user up by email and checks the password. Unknown
// email and wrong password are indistinguishable: both return (nil, nil) after
// one bcrypt comparison.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyNothing(password)
			return nil, nil
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !s.hasher.Verify(password, user.HashedPassword) {
		return nil, nil
	}
	return user, nil
}

// Login runs the password step. Users with TOTP enabled get a short-lived
// totp token and must finish with CompleteTwoFactor.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.IssuedToken, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.metrics.RecordLogin(observability.LoginStepPassword, observability.LoginOutcomeFailure)
		publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventLoginFailed, email, nil, map[string]string{"step": observability.LoginStepPassword}))
		return nil, apperrors.NewUnauthorized(apperrors.MsgLoginFailed)
	}

	if user.TOTPEnabled {
		token, _, err := s.tokens.GenerateToken(user.Email, domain.TokenKindTOTP, s.totpTTL)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		s.metrics.RecordLogin(observability.LoginStepPassword, observability.LoginOutcomeTOTPRequired)
		return &domain.IssuedToken{AccessToken: token, Kind: domain.TokenKindTOTP}, nil
	}

	s.metrics.RecordLogin(observability.LoginStepPassword, observability.LoginOutcomeSuccess)
	return s.issueBearer(ctx, user, observability.LoginStepPassword)
}

// CompleteTwoFactor exchanges a totp token and the current code for a bearer token.
func (s *AuthService) CompleteTwoFactor(ctx context.Context, totpToken, code string) (*domain.IssuedToken, error) {
	fail := func(subject, message string) error {
		s.metrics.RecordLogin(observability.LoginStepTwoFactor, observability.LoginOutcomeFailure)
		publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventTwoFactorFailed, subject, nil, nil))
		return apperrors.NewUnauthorized(message)
	}

	verified, err := s.tokens.ParseToken(totpToken, domain.TokenKindTOTP)
	if err != nil {
		return nil, fail("", apperrors.MsgLoginFailed)
	}
	user, err := s.users.GetByEmail(ctx, verified.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(verified.Subject, apperrors.MsgLoginFailed)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !user.HasTOTPSecret() || !s.totp.Verify(*user.TOTPSecret, code) {
		return nil, fail(user.Email, apperrors.MsgInvalid2FA)
	}

	s.metrics.RecordLogin(observability.LoginStepTwoFactor, observability.LoginOutcomeSuccess)
	return s.issueBearer(ctx, user, observability.LoginStepTwoFactor)
}

func (s *AuthService) issueBearer(ctx context.Context, user *domain.User, step string) (*domain.IssuedToken, error) {
	token, _, err := s.tokens.GenerateToken(user.Email, domain.TokenKindBearer, s.accessTTL)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	actor := user.ID
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventLoginSucceeded, user.Email, &actor, map[string]string{"step": step}))
	return &domain.IssuedToken{AccessToken: token, Kind: domain.TokenKindBearer}, nil
}

// Logout revokes rawToken until its expiry when it is a valid bearer token.
// Anything else is ignored; the caller clears the cookie regardless.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	verified, err := s.tokens.ParseToken(rawToken, domain.TokenKindBearer)
	if err != nil {
		return nil
	}
	if err := s.denylist.Revoke(ctx, verified.ID, verified.ExpiresAt); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
