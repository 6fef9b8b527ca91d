package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kbalyzer/kbalyzer-api/internal/auth"
	"github.com/kbalyzer/kbalyzer-api/internal/config"
	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/events"
	"github.com/kbalyzer/kbalyzer-api/internal/observability"
	"github.com/kbalyzer/kbalyzer-api/internal/repository/repotest"
)

var fixedNow = time.Date(2026, 4, 2, 9, 30, 5, 0, time.UTC)

type testEnv struct {
	users      *repotest.UserStore
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenManager
	totp       *auth.TOTP
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	seen       []events.Event

	auth *AuthService
	user *UserService
	otp  *OTPService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager("service-test-secret", "HS256")
	require.NoError(t, err)

	env := &testEnv{
		users:      repotest.NewUserStore(),
		hasher:     hasher,
		tokens:     tokens,
		totp:       auth.NewTOTP("Kombuchalyzer").WithClock(func() time.Time { return fixedNow }),
		dispatcher: events.NewInMemoryDispatcher(),
		metrics:    observability.NewMetrics(),
	}
	for _, et := range []events.EventType{
		events.EventLoginSucceeded, events.EventLoginFailed, events.EventTwoFactorFailed,
		events.EventUserCreated, events.EventUserDeleted, events.EventTOTPEnabled, events.EventTOTPDisabled,
	} {
		env.dispatcher.Subscribe(et, env.record)
	}

	cfg := config.AuthConfig{AccessTokenExpireMinutes: 60, TOTPTokenExpireMinutes: 5}
	env.auth = NewAuthService(cfg, AuthDependencies{
		UserRepo:   env.users,
		Hasher:     hasher,
		Tokens:     tokens,
		TOTP:       env.totp,
		Dispatcher: env.dispatcher,
		Metrics:    env.metrics,
		Logger:     zap.NewNop(),
	})
	env.user = NewUserService(env.users, hasher, env.dispatcher, zap.NewNop())
	env.otp = NewOTPService(env.users, env.totp, env.dispatcher, zap.NewNop())
	return env
}

func (e *testEnv) addUser(t *testing.T, email, password string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	return e.users.Put(&domain.User{Email: email, HashedPassword: hash, IsActive: true, Role: role})
}

func (e *testEnv) enableTOTP(t *testing.T, u *domain.User) string {
	t.Helper()
	secret, err := e.totp.GenerateSecret()
	require.NoError(t, err)
	u.TOTPSecret = &secret
	u.TOTPEnabled = true
	e.users.Put(u)
	return secret
}

func (e *testEnv) record(_ context.Context, ev events.Event) error {
	e.seen = append(e.seen, ev)
	return nil
}

func (e *testEnv) eventTypes() []events.EventType {
	out := make([]events.EventType, 0, len(e.seen))
	for _, ev := range e.seen {
		out = append(out, ev.Type)
	}
	return out
}
