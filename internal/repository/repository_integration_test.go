package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/persistence"
)

func setupPostgres(t *testing.T) *persistence.Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration tests")
	}
	_ = provider.Close()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("kbalyzer_test"),
		postgres.WithUsername("kbalyzer"),
		postgres.WithPassword("kbalyzer"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))
	return &persistence.Postgres{Pool: pool}
}

func TestUserRepositoryIntegration(t *testing.T) {
	db := setupPostgres(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := &domain.User{Email: "alice@example.com", HashedPassword: "hash-a", IsActive: true, Role: domain.RoleAdmin}
	require.NoError(t, repo.Create(ctx, alice))
	assert.NotEqual(t, uuid.Nil, alice.ID)

	bob := &domain.User{Email: "bob@example.com", HashedPassword: "hash-b", IsActive: true, Role: domain.RoleUser}
	require.NoError(t, repo.Create(ctx, bob))

	t.Run("duplicate email maps to sentinel", func(t *testing.T) {
		dup := &domain.User{Email: "alice@example.com", HashedPassword: "x", Role: domain.RoleUser}
		assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateEmail)
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, domain.RoleAdmin, got.Role)
		assert.Nil(t, got.TOTPSecret)

		got, err = repo.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", got.Email)

		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list and count", func(t *testing.T) {
		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		page, err := repo.List(ctx, domain.Page{Skip: 1, Limit: 10})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "bob@example.com", page[0].Email)
	})

	t.Run("patch update", func(t *testing.T) {
		enabled := true
		_, err := repo.Update(ctx, bob.ID, domain.UserPatch{TOTPEnabled: &enabled})
		assert.Error(t, err, "enabling without a secret violates the check constraint")

		secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
		updated, err := repo.Update(ctx, bob.ID, domain.UserPatch{TOTPSecret: &secret})
		require.NoError(t, err)
		require.NotNil(t, updated.TOTPSecret)
		assert.Equal(t, secret, *updated.TOTPSecret)
		assert.False(t, updated.TOTPEnabled)

		updated, err = repo.Update(ctx, bob.ID, domain.UserPatch{TOTPEnabled: &enabled})
		require.NoError(t, err)
		assert.True(t, updated.TOTPEnabled)
		assert.Equal(t, "hash-b", updated.HashedPassword)

		_, err = repo.Update(ctx, uuid.New(), domain.UserPatch{TOTPEnabled: &enabled})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", deleted.Email)

		_, err = repo.Delete(ctx, bob.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUnitOfWorkIntegration(t *testing.T) {
	db := setupPostgres(t)
	repo := NewUserRepository(db)

	ctx, uow := persistence.BeginUnitOfWork(context.Background(), db.Pool)
	require.NoError(t, repo.Create(ctx, &domain.User{Email: "rolled@example.com", HashedPassword: "h", Role: domain.RoleUser}))
	require.NoError(t, uow.End(context.Background(), false))

	_, err := repo.GetByEmail(context.Background(), "rolled@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	ctx, uow = persistence.BeginUnitOfWork(context.Background(), db.Pool)
	require.NoError(t, repo.Create(ctx, &domain.User{Email: "kept@example.com", HashedPassword: "h", Role: domain.RoleUser}))
	require.NoError(t, uow.End(context.Background(), true))

	_, err = repo.GetByEmail(context.Background(), "kept@example.com")
	assert.NoError(t, err)
}

func TestBrewRepositoryIntegration(t *testing.T) {
	db := setupPostgres(t)
	repo := NewBrewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"ginger", "hibiscus", "jun"} {
		require.NoError(t, repo.Create(ctx, &domain.Brew{Name: name, CreationDate: base.Add(time.Duration(i) * time.Hour)}))
	}
	assert.ErrorIs(t, repo.Create(ctx, &domain.Brew{Name: "ginger"}), ErrDuplicateName)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	brews, err := repo.List(ctx, domain.Page{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, brews, 1)
	assert.Equal(t, "hibiscus", brews[0].Name)
}
