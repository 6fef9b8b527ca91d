package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/kbalyzer/kbalyzer-api/internal/api/dto"
	"github.com/kbalyzer/kbalyzer-api/internal/auth"
	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/service"
	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

// AdminUsersHandler exposes admin-only user management.
type AdminUsersHandler struct {
	users *service.UserService
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(users *service.UserService) *AdminUsersHandler {
	return &AdminUsersHandler{users: users}
}

// Get handles GET /api/admin/user/?user_id=|user_email=.
func (h *AdminUsersHandler) Get(c *fiber.Ctx) error {
	rawID, email := c.Query("user_id"), c.Query("user_email")
	if (rawID == "") == (email == "") {
		return apperrors.NewBadRequest("Either id or email must be provided")
	}

	var (
		user *domain.User
		err  error
	)
	if rawID != "" {
		id, parseErr := uuid.Parse(rawID)
		if parseErr != nil {
			return apperrors.NewValidationError("invalid user_id", map[string]any{"user_id": "must be a UUID"})
		}
		user, err = h.users.GetByID(c.UserContext(), id)
	} else {
		user, err = h.users.GetByEmail(c.UserContext(), email)
	}
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserAdminView(user))
}

// All handles GET /api/admin/user/all.
func (h *AdminUsersHandler) All(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	users, total, err := h.users.List(c.UserContext(), page)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserAllResponse(users, total))
}

// Create handles POST /api/admin/user/.
func (h *AdminUsersHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.UserCreate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	created, err := h.users.Create(c.UserContext(), actor, req.ToNewUser())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserAdminView(created))
}

// Delete handles DELETE /api/admin/user/:id.
func (h *AdminUsersHandler) Delete(c *fiber.Ctx) error {
	actor, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("invalid user id", map[string]any{"id": "must be a UUID"})
	}

	deleted, err := h.users.Delete(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserAdminView(deleted))
}
