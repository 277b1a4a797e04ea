package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ortaieb/a-hunt-game/internal/api/dto"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		want int
	}{
		{domain.KindNotFound, http.StatusNotFound},
		{domain.KindConflict, http.StatusConflict},
		{domain.KindUnauthorized, http.StatusUnauthorized},
		{domain.KindForbidden, http.StatusForbidden},
		{domain.KindValidation, http.StatusBadRequest},
		{domain.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		wantToken string
		wantOK    bool
	}{
		{name: "none", wantOK: true},
		{name: "custom header", headers: map[string]string{TokenHeaderKey: "abc"}, wantToken: "abc", wantOK: true},
		{name: "bearer", headers: map[string]string{AuthHeaderKey: "Bearer abc"}, wantToken: "abc", wantOK: true},
		{name: "custom header wins", headers: map[string]string{TokenHeaderKey: "one", AuthHeaderKey: "Bearer two"}, wantToken: "one", wantOK: true},
		{name: "basic scheme", headers: map[string]string{AuthHeaderKey: "Basic abc"}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			token, ok := extractToken(c)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

type stubVerifier struct {
	identity *service.Identity
	err      error
}

func (s stubVerifier) VerifyToken(string) (*service.Identity, error) {
	return s.identity, s.err
}

func newGateRouter(verifier TokenVerifier, role string, reached *bool) *gin.Engine {
	r := gin.New()
	r.GET("/gated", AuthMiddleware(verifier, nil, nil), RequireRole(role, nil), func(c *gin.Context) {
		*reached = true
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		verifier stubVerifier
		wantCode int
		wantMsg  string
	}{
		{
			name:     "admin allowed",
			verifier: stubVerifier{identity: &service.Identity{Username: "a", Roles: []string{domain.RolePlayer, domain.RoleAdmin}}},
			wantCode: http.StatusOK,
		},
		{
			name:     "player forbidden",
			verifier: stubVerifier{identity: &service.Identity{Username: "p", Roles: []string{domain.RolePlayer}}},
			wantCode: http.StatusForbidden,
			wantMsg:  domain.MsgInsufficientPermissions,
		},
		{
			name:     "no roles forbidden",
			verifier: stubVerifier{identity: &service.Identity{Username: "n"}},
			wantCode: http.StatusForbidden,
			wantMsg:  domain.MsgInsufficientPermissions,
		},
		{
			name:     "rejected token",
			verifier: stubVerifier{err: domain.Unauthorized(domain.MsgWrongToken)},
			wantCode: http.StatusUnauthorized,
			wantMsg:  domain.MsgWrongToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			r := newGateRouter(tt.verifier, domain.RoleAdmin, &reached)

			req := httptest.NewRequest(http.MethodGet, "/gated", nil)
			req.Header.Set(TokenHeaderKey, "token")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantCode == http.StatusOK, reached)
			if tt.wantMsg != "" {
				var resp dto.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantMsg, resp.Message)
			}
		})
	}
}

func TestRespondError_HidesInternalText(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondError(c, nil, domain.Internal("query users", errors.New("pq: connection refused")))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), internalErrorMessage)
}

func TestRespondError_CarriesDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondError(c, nil, domain.Validation("bad role").WithDetail("field", "roles"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bad role", resp.Message)
	assert.Equal(t, "roles", resp.Detail["field"])
}

func TestErrorHandlerMiddleware_RecoversPanic(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandlerMiddleware(nil))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
