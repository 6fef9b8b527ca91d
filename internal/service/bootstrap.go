package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kbalyzer/kbalyzer-api/internal/config"
	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

// EnsureAdmin creates the configured superuser unless an account with that
// email already exists.
func EnsureAdmin(ctx context.Context, users *UserService, cfg config.BootstrapConfig, logger *zap.Logger) error {
	_, err := users.Create(ctx, nil, domain.NewUser{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     domain.RoleAdmin,
		IsActive: true,
	})
	switch {
	case err == nil:
		logger.Info("bootstrap admin created", zap.String("email", cfg.AdminEmail))
		return nil
	case apperrors.IsCode(err, apperrors.CodeDuplicateUser):
		logger.Debug("bootstrap admin already exists", zap.String("email", cfg.AdminEmail))
		return nil
	default:
		return err
	}
}
