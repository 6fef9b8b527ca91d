package dto

import (
	"github.com/google/uuid"

	"github.com/kbalyzer/kbalyzer-api/internal/domain"
)

// UserView is the public projection of a user.
type UserView struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	TOTPEnabled bool      `json:"totp_enabled"`
}

// UserAdminView adds role and status to UserView.
type UserAdminView struct {
	UserView
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// UserCreate is the admin create payload.
type UserCreate struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

// UserAllResponse is a page of users with the total count.
type UserAllResponse struct {
	Total int64           `json:"total"`
	Users []UserAdminView `json:"users"`
}

// NewUserAdminView projects a domain user.
func NewUserAdminView(u *domain.User) UserAdminView {
	return UserAdminView{
		UserView: UserView{ID: u.ID, Email: u.Email, TOTPEnabled: u.TOTPEnabled},
		Role:     u.Role.String(),
		IsActive: u.IsActive,
	}
}

// NewUserAllResponse projects a page of users.
func NewUserAllResponse(users []domain.User, total int64) UserAllResponse {
	views := make([]UserAdminView, 0, len(users))
	for i := range users {
		views = append(views, NewUserAdminView(&users[i]))
	}
	return UserAllResponse{Total: total, Users: views}
}

// ToNewUser applies the payload defaults: role "user", active.
func (r UserCreate) ToNewUser() domain.NewUser {
	role := domain.Role(r.Role)
	if r.Role == "" {
		role = domain.RoleUser
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return domain.NewUser{Email: r.Email, Password: r.Password, Role: role, IsActive: active}
}
