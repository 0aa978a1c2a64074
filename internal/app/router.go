package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/accesshub/accesshub/internal/auth"
	"github.com/accesshub/accesshub/internal/modules"
	"github.com/accesshub/accesshub/internal/rbac"
	"github.com/accesshub/accesshub/internal/roles"
	"github.com/accesshub/accesshub/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthHandler    *auth.Handler
	AuthMiddleware auth.Middleware
	UsersHandler   *users.Handler
	RolesHandler   *roles.Handler
	ModulesHandler *modules.Handler
	RBACHandler    *rbac.Handler
	RBACMiddleware rbac.Middleware
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Credential endpoints get a tighter rate limit than the rest.
			r.Group(func(r chi.Router) {
				r.Use(httprate.Limit(20, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
				params.AuthHandler.MountPublicRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(params.AuthMiddleware.RequirePrincipal)
				params.AuthHandler.MountProtectedRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequirePrincipal)

			r.Route("/users", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireAdmin)
				params.UsersHandler.MountRoutes(r)
			})
			r.Route("/roles", params.RolesHandler.MountRoutes)
			r.Route("/modules", params.ModulesHandler.MountRoutes)
			r.Route("/role-modules", params.RBACHandler.MountRoleModuleRoutes)
			r.Route("/user-roles", params.RBACHandler.MountUserRoleRoutes)
			params.RBACHandler.MountAccessRoutes(r)
		})
	})

	return r
}
