package repository

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/kbalyzer/kbalyzer-api/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var userColumns = []string{
	"id",
	"email",
	"hashed_password",
	"is_active",
	"role",
	"needs_password_change",
	"totp_enabled",
	"totp_secret",
}

var brewColumns = []string{"id", "name", "creation_date"}

func returning(cols []string) string {
	return "RETURNING " + strings.Join(cols, ", ")
}

// byID avoids sq.Eq, which expands array values such as uuid.UUID into IN lists.
func byID(id uuid.UUID) sq.Sqlizer {
	return sq.Expr("id = ?", id)
}

func listUsersQuery(page domain.Page) (string, []any, error) {
	return psql.Select(userColumns...).
		From("users").
		OrderBy("email").
		Offset(page.Skip).
		Limit(page.Limit).
		ToSql()
}

func countQuery(table string) (string, []any, error) {
	return psql.Select("COUNT(*)").From(table).ToSql()
}

func getUserQuery(where sq.Sqlizer) (string, []any, error) {
	return psql.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
}

func insertUserQuery(u *domain.User) (string, []any, error) {
	return psql.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Email, u.HashedPassword, u.IsActive, string(u.Role), u.NeedsPasswordChange, u.TOTPEnabled, u.TOTPSecret).
		ToSql()
}

func updateUserQuery(id uuid.UUID, patch domain.UserPatch) (string, []any, error) {
	set := map[string]any{}
	if patch.HashedPassword != nil {
		set["hashed_password"] = *patch.HashedPassword
	}
	if patch.IsActive != nil {
		set["is_active"] = *patch.IsActive
	}
	if patch.Role != nil {
		set["role"] = string(*patch.Role)
	}
	if patch.NeedsPasswordChange != nil {
		set["needs_password_change"] = *patch.NeedsPasswordChange
	}
	if patch.TOTPEnabled != nil {
		set["totp_enabled"] = *patch.TOTPEnabled
	}
	if patch.TOTPSecret != nil {
		set["totp_secret"] = *patch.TOTPSecret
	}
	return psql.Update("users").
		SetMap(set).
		Where(byID(id)).
		Suffix(returning(userColumns)).
		ToSql()
}

func deleteUserQuery(id uuid.UUID) (string, []any, error) {
	return psql.Delete("users").
		Where(byID(id)).
		Suffix(returning(userColumns)).
		ToSql()
}

func listBrewsQuery(page domain.Page) (string, []any, error) {
	return psql.Select(brewColumns...).
		From("brew").
		OrderBy("creation_date", "name").
		Offset(page.Skip).
		Limit(page.Limit).
		ToSql()
}

func insertBrewQuery(b *domain.Brew) (string, []any, error) {
	return psql.Insert("brew").
		Columns(brewColumns...).
		Values(b.ID, b.Name, b.CreationDate).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSql()
}
