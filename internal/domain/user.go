package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates the storage or wire representation of a role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

// User is an account that can log in to the API.
type User struct {
	ID                  uuid.UUID
	Email               string
	HashedPassword      string
	IsActive            bool
	Role                Role
	NeedsPasswordChange bool
	TOTPEnabled         bool
	TOTPSecret          *string
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasTOTPSecret reports whether TOTP enrollment has begun.
func (u *User) HasTOTPSecret() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}

// NewUser carries the fields needed to create an account. Password is plaintext
// and never leaves the service layer.
type NewUser struct {
	Email    string
	Password string
	Role     Role
	IsActive bool
}

// UserPatch enumerates the mutable user fields. Nil fields are left untouched.
type UserPatch struct {
	HashedPassword      *string
	IsActive            *bool
	Role                *Role
	NeedsPasswordChange *bool
	TOTPEnabled         *bool
	TOTPSecret          *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.HashedPassword == nil && p.IsActive == nil && p.Role == nil &&
		p.NeedsPasswordChange == nil && p.TOTPEnabled == nil && p.TOTPSecret == nil
}

// Apply copies the set fields onto u.
func (p UserPatch) Apply(u *User) {
	if p.HashedPassword != nil {
		u.HashedPassword = *p.HashedPassword
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.NeedsPasswordChange != nil {
		u.NeedsPasswordChange = *p.NeedsPasswordChange
	}
	if p.TOTPEnabled != nil {
		u.TOTPEnabled = *p.TOTPEnabled
	}
	if p.TOTPSecret != nil {
		secret := *p.TOTPSecret
		u.TOTPSecret = &secret
	}
}
