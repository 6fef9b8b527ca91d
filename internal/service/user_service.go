package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kbalyzer/kbalyzer-api/internal/auth"
	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/events"
	"github.com/kbalyzer/kbalyzer-api/internal/repository"
	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

const userResource = "User"

// UserService implements the admin user management rules.
type UserService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewUserService wires a user service.
func NewUserService(users repository.UserRepository, hasher *auth.PasswordHasher, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, hasher: hasher, dispatcher: dispatcher, logger: logger}
}

// List returns one page of users and the total count.
func (s *UserService) List(ctx context.Context, page domain.Page) ([]domain.User, int64, error) {
	users, err := s.users.List(ctx, page)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return users, total, nil
}

// GetByID returns the user or a NOT_FOUND error.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	return user, mapUserErr(err)
}

// GetByEmail returns the user or a NOT_FOUND error.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	return user, mapUserErr(err)
}

// Create hashes the password and persists a new account. An existing email is
// reported as DUPLICATE_USER whether the pre-check or the unique index catches it.
func (s *UserService) Create(ctx context.Context, actor *domain.User, in domain.NewUser) (*domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateNewUser(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		s.logger.Info("duplicate user rejected", zap.String("email", in.Email))
		return nil, apperrors.NewDuplicateUser()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Email:          in.Email,
		HashedPassword: hash,
		IsActive:       in.IsActive,
		Role:           in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateUser()
		}
		return nil, apperrors.NewInternalError(err)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventUserCreated, user.Email, actorID(actor), map[string]string{"role": user.Role.String()}))
	return user, nil
}

// Update applies patch to the user identified by id.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	user, err := s.users.Update(ctx, id, patch)
	return user, mapUserErr(err)
}

// Delete removes the user identified by id. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.User, error) {
	if actor != nil && actor.ID == id {
		s.logger.Info("self delete rejected", zap.String("user_id", id.String()))
		return nil, apperrors.NewBadRequest("Admin users cannot delete themselves")
	}
	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		return nil, mapUserErr(err)
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventUserDeleted, deleted.Email, actorID(actor), nil))
	return deleted, nil
}

func validateNewUser(in domain.NewUser) error {
	details := map[string]any{}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		details["email"] = "must be a valid email address"
	}
	switch {
	case in.Password == "":
		details["password"] = "must not be empty"
	case len(in.Password) > auth.MaxPasswordBytes:
		details["password"] = fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes)
	}
	if _, err := domain.ParseRole(string(in.Role)); err != nil {
		details["role"] = "must be one of user, admin"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid user payload", details)
	}
	return nil
}

func mapUserErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(userResource, nil)
	default:
		return apperrors.NewInternalError(err)
	}
}

func actorID(actor *domain.User) *uuid.UUID {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}
