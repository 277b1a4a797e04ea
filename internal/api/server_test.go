package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ortaieb/a-hunt-game/internal/api/dto"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/ortaieb/a-hunt-game/internal/infrastructure/database"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/ortaieb/a-hunt-game/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "server-test-secret"

// countingUserRepo counts every storage call that reaches the user table.
type countingUserRepo struct {
	repository.UserRepository
	calls atomic.Int64
}

func (r *countingUserRepo) FindActive(ctx context.Context, username string) (*domain.User, error) {
	r.calls.Add(1)
	return r.UserRepository.FindActive(ctx, username)
}

func (r *countingUserRepo) FindAsOf(ctx context.Context, username string, at time.Time) (*domain.User, error) {
	r.calls.Add(1)
	return r.UserRepository.FindAsOf(ctx, username, at)
}

func (r *countingUserRepo) InsertVersion(ctx context.Context, user *domain.User) error {
	r.calls.Add(1)
	return r.UserRepository.InsertVersion(ctx, user)
}

func (r *countingUserRepo) Supersede(ctx context.Context, username string, payload domain.UserPayload) (*domain.User, error) {
	r.calls.Add(1)
	return r.UserRepository.Supersede(ctx, username, payload)
}

func (r *countingUserRepo) Close(ctx context.Context, username string) error {
	r.calls.Add(1)
	return r.UserRepository.Close(ctx, username)
}

func (r *countingUserRepo) ListActive(ctx context.Context, filter repository.UserFilter) ([]*domain.User, error) {
	r.calls.Add(1)
	return r.UserRepository.ListActive(ctx, filter)
}

func (r *countingUserRepo) History(ctx context.Context, username string) ([]*domain.User, error) {
	r.calls.Add(1)
	return r.UserRepository.History(ctx, username)
}

type testServer struct {
	handler http.Handler
	auth    *service.AuthService
	users   *service.UserService
	repo    *countingUserRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.New(database.DriverSQLite, filepath.Join(t.TempDir(), "hunt.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		JWTSecretKey:     testSecret,
		SelfRegistration: true,
	}
	metrics := observability.NewMetrics()

	userRepo := &countingUserRepo{UserRepository: database.NewUserRepository(db)}
	challengeRepo := database.NewChallengeRepository(db)
	participantRepo := database.NewParticipantRepository(db)

	auth := service.NewAuthService(userRepo, service.AuthConfig{
		Secret:        testSecret,
		Algorithm:     "HS256",
		TokenLifetime: time.Hour,
		BcryptCost:    4,
	}, nil)
	users := service.NewUserService(userRepo, auth, nil, metrics)
	registry := service.NewChallengeRegistry(challengeRepo, nil, metrics)
	challenges := service.NewChallengeService(challengeRepo, userRepo, registry, nil, metrics)
	participants := service.NewParticipantService(participantRepo, challengeRepo, userRepo, nil, metrics)

	srv := NewServer(cfg, auth, users, challenges, participants, nil, metrics)
	return &testServer{handler: srv.Handler(), auth: auth, users: users, repo: userRepo}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("user-auth-token", token)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) tokenFor(t *testing.T, username string, roles ...string) string {
	t.Helper()
	issued, err := s.auth.IssueToken(username, roles, username)
	require.NoError(t, err)
	return issued.Token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestLogin_IssuesPlayerToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/users", dto.RegisterRequest{
		Username: "alice", Password: "password1", Nickname: "Alice",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/auth/login", dto.LoginRequest{Username: "alice", Password: "password1"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	token, ok := raw["user-auth-token"].(string)
	require.True(t, ok, "response must carry user-auth-token")

	claims := &service.TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	assert.Equal(t, "alice", claims.Upn)
	assert.Equal(t, "Alice", claims.Nickname)
	assert.Equal(t, []string{domain.RolePlayer}, claims.Roles)
	assert.Equal(t, service.TokenIssuer, claims.Issuer)

	w = s.do(t, http.MethodGet, "/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var me dto.IdentityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Username)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)
	_, err := s.users.Register(context.Background(), "bob", "password1", "Bob")
	require.NoError(t, err)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantMsg  string
	}{
		{name: "wrong password", body: dto.LoginRequest{Username: "bob", Password: "nope-nope"}, wantCode: http.StatusUnauthorized, wantMsg: domain.MsgInvalidCredentials},
		{name: "unknown user", body: dto.LoginRequest{Username: "ghost", Password: "password1"}, wantCode: http.StatusNotFound},
		{name: "missing fields", body: map[string]string{"username": "bob"}, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/auth/login", tt.body, "")
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Message)
			}
		})
	}
}

func TestRegister_OverlongPasswordIsBadRequest(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/users", dto.RegisterRequest{
		Username: "ivy", Password: strings.Repeat("a", service.MaxPasswordBytes+1), Nickname: "Ivy",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "password", decodeError(t, w).Detail["field"])
}

func TestAuthentication_TokenErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, domain.MsgMissingToken, decodeError(t, w).Message)

	w = s.do(t, http.MethodGet, "/auth/me", nil, "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, domain.MsgWrongToken, decodeError(t, w).Message)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Basic YWxpY2U6cHc=")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, domain.MsgWrongToken, decodeError(t, rec).Message)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+s.tokenFor(t, "carol", domain.RolePlayer))
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes_ForbiddenBeforeStorage(t *testing.T) {
	s := newTestServer(t)
	player := s.tokenFor(t, "dave", domain.RolePlayer)
	near := s.tokenFor(t, "erin", "admin", "game.admins")

	routes := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/admin/users", nil},
		{http.MethodPost, "/admin/users", dto.CreateUserRequest{Username: "x", Password: "password1", Nickname: "x", Roles: []string{domain.RolePlayer}}},
		{http.MethodPut, "/admin/users/x/roles", dto.SetRolesRequest{Roles: []string{domain.RoleAdmin}}},
		{http.MethodDelete, "/admin/users/x", nil},
		{http.MethodGet, "/admin/users/x/history", nil},
		{http.MethodPost, "/challenges", dto.ChallengeRequest{Name: "c", StartTime: time.Now(), Moderator: "x"}},
		{http.MethodDelete, "/challenges/abc", nil},
		{http.MethodPost, "/admin/schedule/flush", nil},
	}

	for _, token := range []string{player, near} {
		for _, r := range routes {
			w := s.do(t, r.method, r.path, r.body, token)
			require.Equal(t, http.StatusForbidden, w.Code, "%s %s", r.method, r.path)
			assert.Equal(t, domain.MsgInsufficientPermissions, decodeError(t, w).Message)
		}
	}
	assert.Zero(t, s.repo.calls.Load(), "forbidden requests must not touch storage")

	// someone else's profile is also checked before storage
	w := s.do(t, http.MethodPut, "/users/frank/profile", dto.UpdateProfileRequest{Nickname: ptr("F")}, player)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, s.repo.calls.Load())
}

func TestAdminRoutes_UserLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.tokenFor(t, "root", domain.RoleAdmin)

	w := s.do(t, http.MethodPost, "/admin/users", dto.CreateUserRequest{
		Username: "gina", Password: "password1", Nickname: "Gina", Roles: []string{domain.RolePlayer},
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/admin/users/gina/roles", dto.SetRolesRequest{
		Roles: []string{domain.RolePlayer, domain.RoleAdmin},
	}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/admin/users/gina/history", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var history dto.UserHistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Versions, 2)
	assert.NotNil(t, history.Versions[0].ValidUntil)
	assert.Nil(t, history.Versions[1].ValidUntil)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodGet, "/admin/users/gina/as-of?at=yesterday", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/admin/users/gina", nil, admin)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/admin/users/gina", nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.tokenFor(t, "root", domain.RoleAdmin)
	player := s.tokenFor(t, "hank", domain.RolePlayer)

	_, err := s.users.Create(context.Background(), service.CreateUserInput{
		Username: "mod", Password: "password1", Nickname: "Mod", Roles: []string{domain.RoleAdmin},
	})
	require.NoError(t, err)

	soon := time.Now().UTC().Add(10 * time.Minute).Truncate(time.Second)
	later := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	for _, start := range []time.Time{later, soon} {
		w := s.do(t, http.MethodPost, "/challenges", dto.ChallengeRequest{
			Name: "hunt", StartTime: start, Moderator: "mod",
		}, admin)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodGet, "/challenges?query=starts_before|"+soon.Add(time.Minute).Format(time.RFC3339), nil, player)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var listed dto.ChallengeListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Items, 1)
	assert.True(t, listed.Items[0].StartTime.Equal(soon))

	w = s.do(t, http.MethodGet, "/challenges?query=starts_from|tomorrow", nil, player)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/schedule", nil, player)
	require.Equal(t, http.StatusOK, w.Code)
	var all dto.ScheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Equal(t, 2, all.Size)
	assert.True(t, all.Items[0].StartTime.Equal(soon))

	w = s.do(t, http.MethodGet, "/schedule/upcoming?within=1h", nil, player)
	require.Equal(t, http.StatusOK, w.Code)
	var upcoming dto.ScheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &upcoming))
	assert.Equal(t, 1, upcoming.Size)

	w = s.do(t, http.MethodGet, "/schedule/upcoming?within=soon", nil, player)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/admin/schedule/flush", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var flushed dto.FlushResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flushed))
	assert.Equal(t, 2, flushed.Size)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = s.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hunt_http_requests_total")
}

func ptr[T any](v T) *T {
	return &v
}
