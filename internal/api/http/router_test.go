package http

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kbalyzer/kbalyzer-api/internal/api/http/handlers"
	"github.com/kbalyzer/kbalyzer-api/internal/auth"
	"github.com/kbalyzer/kbalyzer-api/internal/config"
	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/events"
	"github.com/kbalyzer/kbalyzer-api/internal/observability"
	"github.com/kbalyzer/kbalyzer-api/internal/repository/repotest"
	"github.com/kbalyzer/kbalyzer-api/internal/service"
)

var fixedNow = time.Date(2026, 4, 2, 9, 30, 5, 0, time.UTC)

type testServer struct {
	app    *fiber.App
	users  *repotest.UserStore
	brews  *repotest.BrewStore
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	totp   *auth.TOTP
	redis  *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager("router-test-secret", "HS256")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	denylist := auth.NewRedisDenylist(client, "")

	s := &testServer{
		users:  repotest.NewUserStore(),
		brews:  repotest.NewBrewStore(),
		hasher: hasher,
		tokens: tokens,
		totp:   auth.NewTOTP("Kombuchalyzer").WithClock(func() time.Time { return fixedNow }),
		redis:  mr,
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	authCfg := config.AuthConfig{AccessTokenExpireMinutes: 60, TOTPTokenExpireMinutes: 5}

	authSvc := service.NewAuthService(authCfg, service.AuthDependencies{
		UserRepo:   s.users,
		Hasher:     hasher,
		Tokens:     tokens,
		TOTP:       s.totp,
		Denylist:   denylist,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	userSvc := service.NewUserService(s.users, hasher, dispatcher, logger)
	otpSvc := service.NewOTPService(s.users, s.totp, dispatcher, logger)

	s.app = fiber.New()
	RegisterMiddlewares(s.app, logger, metrics, time.Second)
	RegisterRoutes(s.app, RouteConfig{
		Health:         handlers.NewHealthHandler("kbalyzer-api", "test", nil),
		Auth:           handlers.NewAuthHandler(authSvc, false),
		OTP:            handlers.NewOTPHandler(otpSvc),
		AdminUsers:     handlers.NewAdminUsersHandler(userSvc),
		Brews:          handlers.NewBrewsHandler(service.NewBrewService(s.brews)),
		Docs:           handlers.NewDocsHandler("Kombuchalyzer", "/api/openapi.json"),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, s.users, denylist, logger),
		Metrics:        metrics,
		Logger:         logger,
		DevLogin:       true,
	})
	return s
}

func (s *testServer) addUser(t *testing.T, email, password string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := s.hasher.Hash(password)
	require.NoError(t, err)
	return s.users.Put(&domain.User{Email: email, HashedPassword: hash, IsActive: true, Role: role})
}

func (s *testServer) bearer(t *testing.T, email string) string {
	t.Helper()
	tok, _, err := s.tokens.GenerateToken(email, domain.TokenKindBearer, time.Hour)
	require.NoError(t, err)
	return tok
}

type request struct {
	method string
	path   string
	form   url.Values
	json   any
	bearer string
	cookie string
}

func (s *testServer) do(t *testing.T, r request) *nethttp.Response {
	t.Helper()
	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = fiber.MIMEApplicationForm
	case r.json != nil:
		raw, err := json.Marshal(r.json)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
		contentType = fiber.MIMEApplicationJSON
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if r.bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+r.bearer)
	}
	if r.cookie != "" {
		req.AddCookie(&nethttp.Cookie{Name: auth.CookieName, Value: r.cookie})
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *nethttp.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func sessionCookie(resp *nethttp.Response) *nethttp.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type userBody struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	TOTPEnabled bool   `json:"totp_enabled"`
	Role        string `json:"role"`
	IsActive    bool   `json:"is_active"`
}

func loginForm(email, password string) url.Values {
	return url.Values{"username": {email}, "password": {password}}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, request{method: fiber.MethodGet, path: "/health"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, map[string]string{"message": "OK"}, body)

	resp = s.do(t, request{method: fiber.MethodGet, path: "/health/ready"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLoginWithoutTOTP(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice@example.com", "s3cret", domain.RoleUser)

	resp := s.do(t, request{method: fiber.MethodPost, path: "/api/auth/token", form: loginForm("alice@example.com", "s3cret")})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	var tok tokenBody
	decode(t, resp, &tok)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, tok.AccessToken, cookie.Value)

	resp = s.do(t, request{method: fiber.MethodGet, path: "/api/auth/me", cookie: cookie.Value})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me userBody
	decode(t, resp, &me)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, "user", me.Role)
	assert.True(t, me.IsActive)
	assert.False(t, me.TOTPEnabled)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice@example.com", "s3cret", domain.RoleUser)

	for _, form := range []url.Values{
		loginForm("alice@example.com", "wrong"),
		loginForm("ghost@example.com", "s3cret"),
	} {
		resp := s.do(t, request{method: fiber.MethodPost, path: "/api/auth/token", form: form})
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))
		assert.Nil(t, sessionCookie(resp))

		var body errorBody
		decode(t, resp, &body)
		assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
		assert.Equal(t, "Incorrect username or password", body.Error.Message)
	}

	resp := s.do(t, request{method: fiber.MethodPost, path: "/api/auth/token", form: url.Values{"username": {"alice@example.com"}}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLoginWithTOTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.addUser(t, "alice@example.com", "s3cret", domain.RoleUser)
	secret, err := s.totp.GenerateSecret()
	require.NoError(t, err)
	alice.TOTPSecret = &secret
	alice.TOTPEnabled = true
	s.users.Put(alice)

	resp := s.do(t, request{method: fiber.MethodPost, path: "/api/auth/token", form: loginForm("alice@example.com", "s3cret")})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Nil(t, sessionCookie(resp), "no session before the second factor")
	var pending tokenBody
	decode(t, resp, &pending)
	assert.Equal(t, "totp", pending.TokenType)

	resp = s.do(t, request{method: fiber.MethodGet, path: "/api/auth/me", bearer: pending.AccessToken})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	code, err := s.totp.CurrentCode(secret)
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/auth/token-2fa", json: map[string]string{"access_token": pending.AccessToken, "code": wrong}})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, sessionCookie(resp))
	var failure errorBody
	decode(t, resp, &failure)
	assert.Equal(t, "Invalid 2FA code", failure.Error.Message)

	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/auth/token-2fa", json: map[string]string{"access_token": pending.AccessToken, "code": code}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	var final tokenBody
	decode(t, resp, &final)
	assert.Equal(t, "bearer", final.TokenType)

	resp = s.do(t, request{method: fiber.MethodGet, path: "/api/auth/me", bearer: final.AccessToken})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me userBody
	decode(t, resp, &me)
	assert.True(t, me.TOTPEnabled)
}

func TestCookieTakesPrecedenceOverHeader(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice@example.com", "x", domain.RoleUser)
	s.addUser(t, "bob@example.com", "x", domain.RoleUser)

	resp := s.do(t, request{method: fiber.MethodGet, path: "/api/auth/me",
		cookie: s.bearer(t, "alice@example.com"), bearer: s.bearer(t, "bob@example.com")})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me userBody
	decode(t, resp, &me)
	assert.Equal(t, "alice@example.com", me.Email)

	resp = s.do(t, request{method: fiber.MethodGet, path: "/api/auth/me",
		cookie: "garbage", bearer: s.bearer(t, "bob@example.com")})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, request{method: fiber.MethodGet, path: "/api/auth/me", bearer: s.bearer(t, "bob@example.com")})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMeRejectsUnknownSubjectAndMissingToken(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, request{method: fiber.MethodGet, path: "/api/auth/me"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	var body errorBody
	decode(t, resp, &body)
	assert.Equal(t, "Could not validate credentials", body.Error.Message)

	resp = s.do(t, request{method: fiber.MethodGet, path: "/api/auth/me", bearer: s.bearer(t, "deleted@example.com")})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice@example.com", "s3cret", domain.RoleUser)
	token := s.bearer(t, "alice@example.com")

	resp := s.do(t, request{method: fiber.MethodPost, path: "/api/auth/logout", cookie: token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Expires.Before(time.Now()))
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "Successfully logged out", body["message"])

	resp = s.do(t, request{method: fiber.MethodGet, path: "/api/auth/me", bearer: token})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/auth/logout"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "logout without a session still succeeds")
}

func TestDenylistOutageFailsClosed(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice@example.com", "x", domain.RoleUser)
	token := s.bearer(t, "alice@example.com")
	s.redis.SetError("ERR denylist unavailable")

	resp := s.do(t, request{method: fiber.MethodGet, path: "/api/auth/me", bearer: token})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminOnlyRoutes(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "admin@example.com", "x", domain.RoleAdmin)
	s.addUser(t, "user@example.com", "x", domain.RoleUser)
	adminToken := s.bearer(t, "admin@example.com")
	userToken := s.bearer(t, "user@example.com")

	paths := []string{
		"/api/admin/user/all",
		"/api/admin/user/?user_email=user@example.com",
		"/api/brews/",
		"/api/docs",
		"/api/openapi.json",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp := s.do(t, request{method: fiber.MethodGet, path: path})
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			resp = s.do(t, request{method: fiber.MethodGet, path: path, bearer: userToken})
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

			resp = s.do(t, request{method: fiber.MethodGet, path: path, bearer: adminToken})
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		})
	}

	resp := s.do(t, request{method: fiber.MethodDelete, path: "/api/admin/user/00000000-0000-0000-0000-000000000000", bearer: userToken})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/admin/user/", bearer: userToken, json: map[string]string{"email": "x@example.com", "password": "p"}})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminGetUser(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "admin@example.com", "x", domain.RoleAdmin)
	bob := s.addUser(t, "bob@example.com", "x", domain.RoleUser)
	token := s.bearer(t, "admin@example.com")

	cases := []struct {
		query  string
		status int
	}{
		{"", fiber.StatusBadRequest},
		{"?user_id=" + bob.ID.String() + "&user_email=bob@example.com", fiber.StatusBadRequest},
		{"?user_id=not-a-uuid", fiber.StatusBadRequest},
		{"?user_id=" + bob.ID.String(), fiber.StatusOK},
		{"?user_email=bob@example.com", fiber.StatusOK},
		{"?user_email=ghost@example.com", fiber.StatusNotFound},
		{"?user_id=00000000-0000-0000-0000-000000000001", fiber.StatusNotFound},
	}
	for _, tc := range cases {
		resp := s.do(t, request{method: fiber.MethodGet, path: "/api/admin/user/" + tc.query, bearer: token})
		assert.Equal(t, tc.status, resp.StatusCode, tc.query)
	}

	resp := s.do(t, request{method: fiber.MethodGet, path: "/api/admin/user/?user_email=bob@example.com", bearer: token})
	var got userBody
	decode(t, resp, &got)
	assert.Equal(t, bob.ID.String(), got.ID)
}

func TestAdminCreateUser(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "admin@example.com", "x", domain.RoleAdmin)
	token := s.bearer(t, "admin@example.com")

	resp := s.do(t, request{method: fiber.MethodPost, path: "/api/admin/user/", bearer: token,
		json: map[string]string{"email": "bob@example.com", "password": "hunter2"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var created userBody
	decode(t, resp, &created)
	assert.Equal(t, "bob@example.com", created.Email)
	assert.Equal(t, "user", created.Role)
	assert.True(t, created.IsActive)

	stored, ok := s.users.Snapshot("bob@example.com")
	require.True(t, ok)
	assert.NotEqual(t, "hunter2", stored.HashedPassword)

	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/admin/user/", bearer: token,
		json: map[string]string{"email": "bob@example.com", "password": "other"}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var dup errorBody
	decode(t, resp, &dup)
	assert.Equal(t, "DUPLICATE_USER", dup.Error.Code)
	assert.Equal(t, "User already exists", dup.Error.Message)

	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/admin/user/", bearer: token,
		json: map[string]any{"email": "carol@example.com", "password": "p", "role": "root"}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/admin/user/", bearer: token,
		json: map[string]any{"email": "dave@example.com", "password": "p", "role": "admin", "is_active": false}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var dave userBody
	decode(t, resp, &dave)
	assert.Equal(t, "admin", dave.Role)
	assert.False(t, dave.IsActive)

	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/admin/user/", bearer: token,
		json: map[string]string{"email": "long@example.com", "password": strings.Repeat("a", 73)}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var long errorBody
	decode(t, resp, &long)
	assert.Equal(t, "VALIDATION_FAILED", long.Error.Code)
	assert.Contains(t, long.Error.Details, "password")
	_, ok = s.users.Snapshot("long@example.com")
	assert.False(t, ok)
}

func TestAdminDeleteUser(t *testing.T) {
	s := newTestServer(t)
	admin := s.addUser(t, "admin@example.com", "x", domain.RoleAdmin)
	bob := s.addUser(t, "bob@example.com", "x", domain.RoleUser)
	token := s.bearer(t, "admin@example.com")

	resp := s.do(t, request{method: fiber.MethodDelete, path: "/api/admin/user/" + admin.ID.String(), bearer: token})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var selfDelete errorBody
	decode(t, resp, &selfDelete)
	assert.Equal(t, "Admin users cannot delete themselves", selfDelete.Error.Message)
	_, stillThere := s.users.Snapshot("admin@example.com")
	assert.True(t, stillThere)

	resp = s.do(t, request{method: fiber.MethodDelete, path: "/api/admin/user/" + bob.ID.String(), bearer: token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var deleted userBody
	decode(t, resp, &deleted)
	assert.Equal(t, "bob@example.com", deleted.Email)

	resp = s.do(t, request{method: fiber.MethodDelete, path: "/api/admin/user/" + bob.ID.String(), bearer: token})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = s.do(t, request{method: fiber.MethodDelete, path: "/api/admin/user/nope", bearer: token})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPagination(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "admin@example.com", "x", domain.RoleAdmin)
	s.addUser(t, "bob@example.com", "x", domain.RoleUser)
	s.addUser(t, "carol@example.com", "x", domain.RoleUser)
	token := s.bearer(t, "admin@example.com")

	for _, q := range []string{"?skip=-1", "?limit=-5", "?limit=abc", "?skip=1.5"} {
		resp := s.do(t, request{method: fiber.MethodGet, path: "/api/admin/user/all" + q, bearer: token})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, q)
	}

	resp := s.do(t, request{method: fiber.MethodGet, path: "/api/admin/user/all?skip=1&limit=1", bearer: token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var page struct {
		Total int        `json:"total"`
		Users []userBody `json:"users"`
	}
	decode(t, resp, &page)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "bob@example.com", page.Users[0].Email)
}

func TestBrewsList(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "admin@example.com", "x", domain.RoleAdmin)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"ginger", "hibiscus"} {
		require.NoError(t, s.brews.Create(t.Context(), &domain.Brew{Name: name, CreationDate: base.Add(time.Duration(i) * time.Hour)}))
	}

	resp := s.do(t, request{method: fiber.MethodGet, path: "/api/brews/", bearer: s.bearer(t, "admin@example.com")})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body struct {
		Total int `json:"total"`
		Brews []struct {
			ID           string    `json:"id"`
			Name         string    `json:"name"`
			CreationDate time.Time `json:"creation_date"`
		} `json:"brews"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Brews, 2)
	assert.Equal(t, "ginger", body.Brews[0].Name)
	assert.True(t, body.Brews[0].CreationDate.Equal(base))
}

func TestOTPEnrollment(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice@example.com", "x", domain.RoleUser)
	token := s.bearer(t, "alice@example.com")

	resp := s.do(t, request{method: fiber.MethodGet, path: "/api/auth/otp/generate"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, request{method: fiber.MethodGet, path: "/api/auth/otp/generate", bearer: token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))

	stored, _ := s.users.Snapshot("alice@example.com")
	require.NotNil(t, stored.TOTPSecret)
	code, err := s.totp.CurrentCode(*stored.TOTPSecret)
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/auth/otp/enable", bearer: token, json: map[string]string{"code": wrong}})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Empty(t, raw)

	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/auth/otp/enable", bearer: token, json: map[string]string{"code": code}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ = io.ReadAll(resp.Body)
	assert.Empty(t, raw)
	stored, _ = s.users.Snapshot("alice@example.com")
	assert.True(t, stored.TOTPEnabled)

	resp = s.do(t, request{method: fiber.MethodGet, path: "/api/auth/otp/generate", bearer: token})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var already errorBody
	decode(t, resp, &already)
	assert.Equal(t, "TOTP is already enabled for this user.", already.Error.Message)

	resp = s.do(t, request{method: fiber.MethodPost, path: "/api/auth/otp/disable", bearer: token, json: map[string]string{"code": code}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stored, _ = s.users.Snapshot("alice@example.com")
	assert.False(t, stored.TOTPEnabled)
}

func TestDevLoginPageAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, request{method: fiber.MethodGet, path: "/login"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `action="/api/auth/token"`)

	resp = s.do(t, request{method: fiber.MethodGet, path: "/metrics"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `http_requests_total{method="GET",route="/login",status="200"} 1`)
}

func TestUnknownRouteRendersJSONError(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, request{method: fiber.MethodGet, path: "/nope"})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var body errorBody
	decode(t, resp, &body)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}
