package auth

import (
	"LinkLoom-Backend/internal/repository/memory"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testJWTService() *JWTService {
	return NewJWTService(&JWTConfig{
		SecretKey:            []byte("test-secret"),
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "LinkLoom-Backend",
	})
}

func TestJWTService_RoundTrip(t *testing.T) {
	s := testJWTService()

	token, err := s.GenerateAccessToken(42, "user@example.com")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "LinkLoom-Backend", claims.Issuer)
}

func TestJWTService_Expired(t *testing.T) {
	s := NewJWTService(&JWTConfig{
		SecretKey:           []byte("test-secret"),
		AccessTokenDuration: -time.Minute,
		Issuer:              "LinkLoom-Backend",
	})

	token, err := s.GenerateAccessToken(42, "user@example.com")
	require.NoError(t, err)

	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_WrongSecret(t *testing.T) {
	token, err := testJWTService().GenerateAccessToken(42, "user@example.com")
	require.NoError(t, err)

	other := NewJWTService(&JWTConfig{
		SecretKey:           []byte("different-secret"),
		AccessTokenDuration: 15 * time.Minute,
	})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractTokenFromBearer(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", ExtractTokenFromBearer("Bearer abc.def.ghi"))
	assert.Equal(t, "", ExtractTokenFromBearer("abc.def.ghi"))
	assert.Equal(t, "", ExtractTokenFromBearer("Bearer "))
	assert.Equal(t, "", ExtractTokenFromBearer(""))
}

func TestPasswordService(t *testing.T) {
	s := NewPasswordServiceWithCost(bcrypt.MinCost)

	hash, err := s.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, s.VerifyPassword(hash, "correct horse"))
	assert.Error(t, s.VerifyPassword(hash, "wrong horse"))

	_, err = s.HashPassword("")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestIsValidPassword(t *testing.T) {
	assert.Error(t, IsValidPassword("short"))
	assert.NoError(t, IsValidPassword("longenough"))
}

func newTestHandlers() *Handlers {
	storage := memory.New()
	return NewHandlers(storage, testJWTService(), NewPasswordServiceWithCost(bcrypt.MinCost), zap.NewNop())
}

func postJSON(path, body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
}

func TestHandlers_RegisterAndLogin(t *testing.T) {
	h := newTestHandlers()

	w := httptest.NewRecorder()
	h.Register(w, postJSON("/api/auth/register", `{"email": "User@Example.com", "password": "secret123"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	var registered AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)
	assert.Equal(t, "user@example.com", registered.User.Email)

	t.Run("duplicate_email", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Register(w, postJSON("/api/auth/register", `{"email": "user@example.com", "password": "secret123"}`))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("login_success", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Login(w, postJSON("/api/auth/login", `{"email": "user@example.com", "password": "secret123"}`))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("login_wrong_password", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Login(w, postJSON("/api/auth/login", `{"email": "user@example.com", "password": "nope123"}`))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("login_unknown_user", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Login(w, postJSON("/api/auth/login", `{"email": "nobody@example.com", "password": "secret123"}`))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refresh", func(t *testing.T) {
		w := httptest.NewRecorder()
		body, _ := json.Marshal(RefreshRequest{RefreshToken: registered.RefreshToken})
		h.Refresh(w, postJSON("/api/auth/refresh", string(body)))
		require.Equal(t, http.StatusOK, w.Code)

		var refreshed AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
		assert.NotEmpty(t, refreshed.AccessToken)
	})

	t.Run("refresh_with_garbage", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Refresh(w, postJSON("/api/auth/refresh", `{"refresh_token": "not.a.token"}`))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandlers_RegisterValidation(t *testing.T) {
	h := newTestHandlers()

	cases := []struct {
		name string
		body string
	}{
		{"bad_email", `{"email": "not-an-email", "password": "secret123"}`},
		{"short_password", `{"email": "user@example.com", "password": "x"}`},
		{"malformed_body", `{nope`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Register(w, postJSON("/api/auth/register", tc.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestMiddleware_RequireAuth(t *testing.T) {
	jwtService := testJWTService()
	m := NewMiddleware(jwtService, zap.NewNop())

	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, int64(42), userID)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid_token", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(42, "user@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing_header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad_token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
		req.Header.Set("Authorization", "Bearer junk")
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMiddleware_OptionalAuth(t *testing.T) {
	jwtService := testJWTService()
	m := NewMiddleware(jwtService, zap.NewNop())

	var sawUser bool
	handler := m.OptionalAuth(func(w http.ResponseWriter, r *http.Request) {
		_, sawUser = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("anonymous_passes_through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/shorten", nil)
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, sawUser)
	})

	t.Run("invalid_token_treated_as_anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/shorten", nil)
		req.Header.Set("Authorization", "Bearer junk")
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, sawUser)
	})

	t.Run("valid_token_attaches_principal", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(42, "user@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/shorten", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, sawUser)
	})
}
