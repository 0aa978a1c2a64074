package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewService(newMemoryRepo(), NewTokenIssuer("test-secret", time.Hour), NewRevocationList(client))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc)
	mw := Middleware{Service: svc, Logger: logger}

	r := chi.NewRouter()
	r.Group(handler.MountPublicRoutes)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequirePrincipal)
		handler.MountProtectedRoutes(r)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginFlow(t *testing.T) {
	router := newTestHandler(t)

	rec := doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered struct {
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	require.Equal(t, "admin", registered.Role, "first account is promoted")

	rec = doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"name": "Bob", "email": "bob@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	require.Equal(t, "user", registered.Role)

	// Duplicate email.
	rec = doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"name": "Alice II", "email": "alice@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// Short password fails validation before the service is reached.
	rec = doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"name": "Eve", "email": "eve@example.com", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	require.Equal(t, "admin", login.User.Role)

	rec = doJSON(t, router, http.MethodGet, "/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me accountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, "alice@example.com", me.Email)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router := newTestHandler(t)

	rec := doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-pass",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestHandler(t)

	rec := doJSON(t, router, http.MethodGet, "/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/me", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	router := newTestHandler(t)

	rec := doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = doJSON(t, router, http.MethodPost, "/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/me", login.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "revoked token is rejected by the middleware")
}
