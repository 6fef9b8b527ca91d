package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kbalyzer/kbalyzer-api/internal/auth"
	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/events"
	"github.com/kbalyzer/kbalyzer-api/internal/repository"
	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

// MsgTOTPAlreadyEnabled is returned when enrollment is requested twice.
const MsgTOTPAlreadyEnabled = "TOTP is already enabled for this user."

// ErrInvalidCode reports a TOTP code that does not match the current step.
var ErrInvalidCode = errors.New("invalid totp code")

// OTPService handles TOTP enrollment for the authenticated user.
type OTPService struct {
	users      repository.UserRepository
	totp       *auth.TOTP
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewOTPService wires an OTP service.
func NewOTPService(users repository.UserRepository, totp *auth.TOTP, dispatcher events.Dispatcher, logger *zap.Logger) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPService{users: users, totp: totp, dispatcher: dispatcher, logger: logger}
}

// Generate returns the provisioning QR code as PNG. A secret is created and
// stored on first use and reused afterwards.
func (s *OTPService) Generate(ctx context.Context, user *domain.User) ([]byte, error) {
	if user.TOTPEnabled {
		return nil, apperrors.NewBadRequest(MsgTOTPAlreadyEnabled)
	}

	secret := ""
	if user.HasTOTPSecret() {
		secret = *user.TOTPSecret
	} else {
		generated, err := s.totp.GenerateSecret()
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if _, err := s.users.Update(ctx, user.ID, domain.UserPatch{TOTPSecret: &generated}); err != nil {
			return nil, mapUserErr(err)
		}
		secret = generated
	}

	png, err := s.totp.RenderQR(s.totp.ProvisioningURI(secret, user.Email))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return png, nil
}

// Enable turns TOTP on after checking code against the stored secret.
func (s *OTPService) Enable(ctx context.Context, user *domain.User, code string) error {
	if !user.HasTOTPSecret() {
		return apperrors.NewBadRequest("TOTP secret has not been generated for this user.")
	}
	return s.setEnabled(ctx, user, code, true)
}

// Disable turns TOTP off after checking code. The secret is kept so the
// authenticator entry keeps working if TOTP is enabled again.
func (s *OTPService) Disable(ctx context.Context, user *domain.User, code string) error {
	if !user.HasTOTPSecret() {
		return ErrInvalidCode
	}
	return s.setEnabled(ctx, user, code, false)
}

func (s *OTPService) setEnabled(ctx context.Context, user *domain.User, code string, enabled bool) error {
	if !s.totp.Verify(*user.TOTPSecret, code) {
		return ErrInvalidCode
	}
	if _, err := s.users.Update(ctx, user.ID, domain.UserPatch{TOTPEnabled: &enabled}); err != nil {
		return mapUserErr(err)
	}

	eventType := events.EventTOTPDisabled
	if enabled {
		eventType = events.EventTOTPEnabled
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.New(eventType, user.Email, actorID(user), nil))
	return nil
}
