package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accesshub/accesshub/internal/shared"
)

func TestRequireAdmin(t *testing.T) {
	mw := Middleware{Service: NewService(newMemoryRepo())}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := mw.RequireAdmin(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "no principal in context")

	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req.WithContext(shared.ContextWithPrincipal(req.Context(), userActor)))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req.WithContext(shared.ContextWithPrincipal(req.Context(), adminActor)))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireModule(t *testing.T) {
	repo := newMemoryRepo()
	repo.users[2] = true
	repo.roles[10] = "Editors"
	repo.modules[100] = "Reports"
	repo.userRoles[pair{2, 10}] = true
	repo.roleModules[pair{10, 100}] = PermissionRead

	mw := Middleware{Service: NewService(repo)}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	withUser := req.WithContext(shared.ContextWithPrincipal(req.Context(), userActor))

	rec := httptest.NewRecorder()
	mw.RequireModule(100, PermissionRead)(next).ServeHTTP(rec, withUser)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	mw.RequireModule(100, PermissionDelete)(next).ServeHTTP(rec, withUser)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// The admin tag bypasses grants entirely.
	rec = httptest.NewRecorder()
	withAdmin := req.WithContext(shared.ContextWithPrincipal(req.Context(), adminActor))
	mw.RequireModule(100, PermissionDelete)(next).ServeHTTP(rec, withAdmin)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
