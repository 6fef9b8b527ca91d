package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/persistence"
)

// BrewRepository lists brews. Create exists for out-of-band seeding only.
type BrewRepository interface {
	List(ctx context.Context, page domain.Page) ([]domain.Brew, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, brew *domain.Brew) error
}

type brewRepository struct {
	db persistence.DB
}

// NewBrewRepository returns a Postgres-backed implementation.
func NewBrewRepository(db persistence.DB) BrewRepository {
	return &brewRepository{db: db}
}

func (r *brewRepository) List(ctx context.Context, page domain.Page) ([]domain.Brew, error) {
	query, args, err := listBrewsQuery(page)
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

	brews := make([]domain.Brew, 0)
	for rows.Next() {
		var b domain.Brew
		if err := rows.Scan(&b.ID, &b.Name, &b.CreationDate); err != nil {
			return nil, err
		}
		brews = append(brews, b)
	}
	return brews, rows.Err()
}

func (r *brewRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, "brew")
}

// Create inserts brew, returning ErrDuplicateName when the name is taken.
func (r *brewRepository) Create(ctx context.Context, brew *domain.Brew) error {
	if brew.ID == uuid.Nil {
		brew.ID = uuid.New()
	}
	if brew.CreationDate.IsZero() {
		brew.CreationDate = time.Now().UTC()
	}
	query, args, err := insertBrewQuery(brew)
	if err != nil {
		return err
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, ErrDuplicateName)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateName
	}
	return nil
}
