package rbac

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/accesshub/accesshub/internal/shared"
)

func newTestRouter(t *testing.T, repo *memoryRepo, principal shared.Principal) http.Handler {
	t.Helper()
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithPrincipal(req.Context(), principal)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/role-modules", handler.MountRoleModuleRoutes)
	r.Route("/user-roles", handler.MountUserRoleRoutes)
	r.Group(handler.MountAccessRoutes)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAssignModulesEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	repo.roles[10] = "Editors"
	repo.modules[100] = "Reports"
	repo.modules[101] = "Billing"
	router := newTestRouter(t, repo, adminActor)

	rec := postJSON(t, router, "/role-modules/assign", map[string]any{
		"role_id":    10,
		"module_ids": []int64{100, 999, 101},
		"permission": "write",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AffectedRows int `json:"affected_rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.AffectedRows, "unknown module ids are dropped from the batch")
}

func TestAssignModulesEndpointRejectsBadInput(t *testing.T) {
	repo := newMemoryRepo()
	repo.roles[10] = "Editors"
	router := newTestRouter(t, repo, adminActor)

	rec := postJSON(t, router, "/role-modules/assign", map[string]any{
		"role_id":    10,
		"module_ids": []int64{100},
		"permission": "execute",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = postJSON(t, router, "/role-modules/assign", map[string]any{
		"role_id":    10,
		"permission": "read",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, "empty module id list fails validation")
}

func TestAssignModulesEndpointForbiddenForNonAdmin(t *testing.T) {
	repo := newMemoryRepo()
	repo.roles[10] = "Editors"
	repo.modules[100] = "Reports"
	router := newTestRouter(t, repo, userActor)

	rec := postJSON(t, router, "/role-modules/assign", map[string]any{
		"role_id":    10,
		"module_ids": []int64{100},
		"permission": "read",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJoinRoleEndpointConflictOnRepeat(t *testing.T) {
	repo := newMemoryRepo()
	repo.users[2] = true
	repo.roles[10] = "Editors"
	router := newTestRouter(t, repo, userActor)

	rec := postJSON(t, router, "/user-roles/join", map[string]any{"role_id": 10})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/user-roles/join", map[string]any{"role_id": 10})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = postJSON(t, router, "/user-roles/leave", map[string]any{"role_id": 10})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/user-roles/leave", map[string]any{"role_id": 10})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckAccessEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	repo.users[2] = true
	repo.roles[10] = "Editors"
	repo.modules[100] = "Reports"
	repo.userRoles[pair{2, 10}] = true
	repo.roleModules[pair{10, 100}] = PermissionWrite
	router := newTestRouter(t, repo, userActor)

	for query, want := range map[string]bool{
		"module_id=100&action=read":   true,
		"module_id=100&action=write":  true,
		"module_id=100&action=delete": false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/access/check?"+query, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Allowed bool `json:"allowed"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, want, resp.Allowed, query)
	}

	req := httptest.NewRequest(http.MethodGet, "/access/check?module_id=100&action=execute", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	repo.users[2] = true
	repo.roles[10] = "Editors"
	repo.modules[100] = "Reports"
	repo.modules[101] = "Billing"
	repo.userRoles[pair{2, 10}] = true
	repo.roleModules[pair{10, 100}] = PermissionRead
	router := newTestRouter(t, repo, userActor)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var modules []ModuleAccess
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &modules))
	require.Len(t, modules, 1)
	require.Equal(t, int64(100), modules[0].ModuleID)
	require.Equal(t, PermissionRead, modules[0].Permission)
}

func TestListUserRolesEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	repo.users[2] = true
	repo.roles[10] = "Editors"
	repo.userRoles[pair{2, 10}] = true
	router := newTestRouter(t, repo, adminActor)

	req := httptest.NewRequest(http.MethodGet, "/user-roles/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var roles []RoleRef
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
	require.Len(t, roles, 1)
	require.Equal(t, "Editors", roles[0].Name)

	req = httptest.NewRequest(http.MethodGet, "/user-roles/abc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
