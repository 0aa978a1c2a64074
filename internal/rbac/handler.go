package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/accesshub/accesshub/internal/platform/httpx"
	"github.com/accesshub/accesshub/internal/shared"
)

// Handler wires HTTP endpoints for assignments and access decisions.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoleModuleRoutes registers role→module assignment routes.
func (h *Handler) MountRoleModuleRoutes(r chi.Router) {
	r.Get("/", h.listAssignments)
	r.Post("/assign", h.assignModules)
	r.Delete("/", h.removeModule)
}

// MountUserRoleRoutes registers user→role membership routes.
func (h *Handler) MountUserRoleRoutes(r chi.Router) {
	r.Post("/", h.assignRole)
	r.Delete("/", h.removeRole)
	r.Get("/{userID}", h.listUserRoles)
	r.Post("/join", h.joinRole)
	r.Post("/leave", h.leaveRole)
}

// MountAccessRoutes registers access decision routes.
func (h *Handler) MountAccessRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboard)
	r.Get("/access/check", h.checkAccess)
}

type assignModulesRequest struct {
	RoleID     int64   `json:"role_id" validate:"required,gt=0"`
	ModuleIDs  []int64 `json:"module_ids" validate:"required,min=1"`
	Permission string  `json:"permission" validate:"required"`
}

func (h *Handler) assignModules(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req assignModulesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	permission, err := ParsePermission(req.Permission)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	affected, err := h.service.AssignModulesToRole(r.Context(), principal, req.RoleID, req.ModuleIDs, permission)
	if err != nil {
		h.logger.Error("assign modules", slog.Int64("role_id", req.RoleID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":       "modules assigned",
		"affected_rows": affected,
	})
}

type roleModuleRequest struct {
	RoleID   int64 `json:"role_id" validate:"required,gt=0"`
	ModuleID int64 `json:"module_id" validate:"required,gt=0"`
}

func (h *Handler) removeModule(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req roleModuleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	removed, err := h.service.RemoveModuleFromRole(r.Context(), principal, req.RoleID, req.ModuleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "module removed from role",
		"removed": removed,
	})
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.service.ListAssignments(r.Context())
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if assignments == nil {
		assignments = []Assignment{}
	}
	httpx.JSON(w, http.StatusOK, assignments)
}

type userRoleRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req userRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.service.AssignRoleToUser(r.Context(), principal, req.UserID, req.RoleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "role assigned"})
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req userRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	removed, err := h.service.RemoveRoleFromUser(r.Context(), principal, req.UserID, req.RoleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "role removed",
		"removed": removed,
	})
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	roles, err := h.service.RolesForUser(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if roles == nil {
		roles = []RoleRef{}
	}
	httpx.JSON(w, http.StatusOK, roles)
}

type selfRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

func (h *Handler) joinRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req selfRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	// Join always targets the caller, regardless of the admin tag.
	actor := shared.Principal{ID: principal.ID, Role: shared.RoleUser}
	if err := h.service.AssignRoleToUser(r.Context(), actor, principal.ID, req.RoleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "added to role"})
}

func (h *Handler) leaveRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req selfRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	actor := shared.Principal{ID: principal.ID, Role: shared.RoleUser}
	if _, err := h.service.RemoveRoleFromUser(r.Context(), actor, principal.ID, req.RoleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "removed from role"})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	modules, err := h.service.AccessibleModules(r.Context(), principal)
	if err != nil {
		h.logger.Error("dashboard modules", slog.Int64("user_id", principal.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if modules == nil {
		modules = []ModuleAccess{}
	}
	httpx.JSON(w, http.StatusOK, modules)
}

func (h *Handler) checkAccess(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	moduleID, err := strconv.ParseInt(r.URL.Query().Get("module_id"), 10, 64)
	if err != nil || moduleID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid module id")
		return
	}
	action, err := ParsePermission(r.URL.Query().Get("action"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	allowed, err := h.service.Authorize(r.Context(), principal, moduleID, action)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}
