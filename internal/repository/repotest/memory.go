// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/repository"
)

// UserStore is a map-backed repository.UserRepository.
type UserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User

	// Err, when set, is returned by every call.
	Err error
}

var _ repository.UserRepository = (*UserStore)(nil)

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{users: map[uuid.UUID]*domain.User{}}
}

// Put stores u as-is, replacing any record with the same id.
func (m *UserStore) Put(u *domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.users[u.ID] = &cp
	return u
}

// Snapshot returns a copy of the stored user with the given email.
func (m *UserStore) Snapshot(email string) (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return *u, true
		}
	}
	return domain.User{}, false
}

func (m *UserStore) sorted() []*domain.User {
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func (m *UserStore) List(_ context.Context, page domain.Page) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	all := m.sorted()
	out := []domain.User{}
	for i := page.Skip; i < uint64(len(all)) && uint64(len(out)) < page.Limit; i++ {
		out = append(out, *all[i])
	}
	return out, nil
}

func (m *UserStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.users)), nil
}

func (m *UserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *UserStore) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if user.HashedPassword == "" {
		return errors.New("hashed_password must not be empty")
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *UserStore) Update(_ context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := *u
	patch.Apply(&next)
	if next.TOTPEnabled && !next.HasTOTPSecret() {
		return nil, errors.New("users_totp_secret_check violated")
	}
	m.users[id] = &next
	cp := next
	return &cp, nil
}

func (m *UserStore) Delete(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.users, id)
	return u, nil
}

// BrewStore is a slice-backed repository.BrewRepository.
type BrewStore struct {
	mu    sync.Mutex
	brews []domain.Brew

	Err error
}

var _ repository.BrewRepository = (*BrewStore)(nil)

// NewBrewStore returns an empty store.
func NewBrewStore() *BrewStore {
	return &BrewStore{}
}

func (m *BrewStore) List(_ context.Context, page domain.Page) ([]domain.Brew, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []domain.Brew{}
	for i := page.Skip; i < uint64(len(m.brews)) && uint64(len(out)) < page.Limit; i++ {
		out = append(out, m.brews[i])
	}
	return out, nil
}

func (m *BrewStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.brews)), nil
}

func (m *BrewStore) Create(_ context.Context, brew *domain.Brew) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, b := range m.brews {
		if b.Name == brew.Name {
			return repository.ErrDuplicateName
		}
	}
	if brew.ID == uuid.Nil {
		brew.ID = uuid.New()
	}
	if brew.CreationDate.IsZero() {
		brew.CreationDate = time.Now().UTC()
	}
	m.brews = append(m.brews, *brew)
	sort.SliceStable(m.brews, func(i, j int) bool {
		if m.brews[i].CreationDate.Equal(m.brews[j].CreationDate) {
			return m.brews[i].Name < m.brews[j].Name
		}
		return m.brews[i].CreationDate.Before(m.brews[j].CreationDate)
	})
	return nil
}
