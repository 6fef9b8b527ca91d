package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/persistence"
)

// UserRepository defines persistence access for user accounts.
type UserRepository interface {
	List(ctx context.Context, page domain.Page) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type userRepository struct {
	db persistence.DB
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db persistence.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) List(ctx context.Context, page domain.Page) ([]domain.User, error) {
	query, args, err := listUsersQuery(page)
	if err != nil {
		return nil, err
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, "users")
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, byID(id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, sq.Eq{"email": email})
}

func (r *userRepository) getOne(ctx context.Context, where sq.Sqlizer) (*domain.User, error) {
	query, args, err := getUserQuery(where)
	if err != nil {
		return nil, err
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	user, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, nil)
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	query, args, err := insertUserQuery(user)
	if err != nil {
		return err
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, query, args...)
	return mapError(err, ErrDuplicateEmail)
}

func (r *userRepository) Update(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}
	query, args, err := updateUserQuery(id, patch)
	if err != nil {
		return nil, err
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	user, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, ErrDuplicateEmail)
	}
	return user, nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query, args, err := deleteUserQuery(id)
	if err != nil {
		return nil, err
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	user, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, nil)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.IsActive,
		&role,
		&user.NeedsPasswordChange,
		&user.TOTPEnabled,
		&user.TOTPSecret,
	); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", user.ID, err)
	}
	user.Role = parsed
	return &user, nil
}

func count(ctx context.Context, db persistence.DB, table string) (int64, error) {
	query, args, err := countQuery(table)
	if err != nil {
		return 0, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := conn.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
