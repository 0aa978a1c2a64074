package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accesshub/accesshub/internal/platform/db"
)

// Repository defines data access for role and module assignments.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	UpsertUserRole(ctx context.Context, userID, roleID int64) (bool, error)
	DeleteUserRole(ctx context.Context, userID, roleID int64) (bool, error)
	DeleteRoleModule(ctx context.Context, roleID, moduleID int64) (bool, error)

	EffectiveRoleIDs(ctx context.Context, userID int64) ([]int64, error)
	RolesForUser(ctx context.Context, userID int64) ([]RoleRef, error)
	PermissionsForModule(ctx context.Context, roleIDs []int64, moduleID int64) ([]Permission, error)
	ListAssignments(ctx context.Context) ([]Assignment, error)
	AllModules(ctx context.Context) ([]ModuleAccess, error)
	ModulesForUser(ctx context.Context, userID int64) ([]ModuleAccess, error)
}

// TxRepository defines assignment operations that must share one transaction.
type TxRepository interface {
	LockRole(ctx context.Context, roleID int64) (bool, error)
	ExistingModuleIDs(ctx context.Context, moduleIDs []int64) ([]int64, error)
	UpsertRoleModule(ctx context.Context, roleID, moduleID int64, permission Permission) error
}

var _ Repository = (*pgRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

func (r *pgRepository) UpsertUserRole(ctx context.Context, userID, roleID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, role_id) DO NOTHING`,
		userID, roleID)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgRepository) DeleteUserRole(ctx context.Context, userID, roleID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`,
		userID, roleID)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgRepository) DeleteRoleModule(ctx context.Context, roleID, moduleID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM role_modules WHERE role_id = $1 AND module_id = $2`,
		roleID, moduleID)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgRepository) EffectiveRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT role_id FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, db.MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return ids, nil
}

func (r *pgRepository) RolesForUser(ctx context.Context, userID int64) ([]RoleRef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1
		 ORDER BY r.id`, userID)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var refs []RoleRef
	for rows.Next() {
		var ref RoleRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, db.MapError(err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return refs, nil
}

func (r *pgRepository) PermissionsForModule(ctx context.Context, roleIDs []int64, moduleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT permission FROM role_modules
		 WHERE module_id = $1 AND role_id = ANY($2)`,
		moduleID, roleIDs)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, db.MapError(err)
		}
		perms = append(perms, Permission(p))
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return perms, nil
}

func (r *pgRepository) ListAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rm.role_id, rm.module_id, rm.permission, r.name, m.name
		 FROM role_modules rm
		 JOIN roles r ON rm.role_id = r.id
		 JOIN modules m ON rm.module_id = m.id
		 ORDER BY rm.role_id, rm.module_id`)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.RoleID, &a.ModuleID, &a.Permission, &a.RoleName, &a.ModuleName); err != nil {
			return nil, db.MapError(err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return assignments, nil
}

const permissionLevelExpr = `CASE rm.permission
	WHEN 'delete' THEN 3
	WHEN 'write' THEN 2
	WHEN 'read' THEN 1
	ELSE 0 END`

// AllModules returns every module with the highest permission granted by any
// role, level 0 when no grant exists at all.
func (r *pgRepository) AllModules(ctx context.Context) ([]ModuleAccess, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.name, COALESCE(MAX(`+permissionLevelExpr+`), 0)
		 FROM modules m
		 LEFT JOIN role_modules rm ON rm.module_id = m.id
		 GROUP BY m.id, m.name
		 ORDER BY m.id`)
	if err != nil {
		return nil, db.MapError(err)
	}
	return scanModuleAccess(rows)
}

// ModulesForUser returns the distinct modules reachable through the user's
// roles with the highest granted level per module.
func (r *pgRepository) ModulesForUser(ctx context.Context, userID int64) ([]ModuleAccess, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.name, MAX(`+permissionLevelExpr+`)
		 FROM modules m
		 JOIN role_modules rm ON rm.module_id = m.id
		 JOIN user_roles ur ON ur.role_id = rm.role_id
		 WHERE ur.user_id = $1
		 GROUP BY m.id, m.name
		 ORDER BY m.id`, userID)
	if err != nil {
		return nil, db.MapError(err)
	}
	return scanModuleAccess(rows)
}

func scanModuleAccess(rows pgx.Rows) ([]ModuleAccess, error) {
	defer rows.Close()
	var access []ModuleAccess
	for rows.Next() {
		var (
			ma    ModuleAccess
			level int
		)
		if err := rows.Scan(&ma.ModuleID, &ma.Name, &level); err != nil {
			return nil, db.MapError(err)
		}
		ma.Permission = permissionFromLevel(level)
		access = append(access, ma)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return access, nil
}

func permissionFromLevel(level int) Permission {
	switch level {
	case 3:
		return PermissionDelete
	case 2:
		return PermissionWrite
	case 1:
		return PermissionRead
	}
	return ""
}

type pgTxRepository struct {
	tx pgx.Tx
}

// LockRole takes a row lock on the role so concurrent deletes cannot race
// the batch assignment.
func (r *pgTxRepository) LockRole(ctx context.Context, roleID int64) (bool, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM roles WHERE id = $1 FOR UPDATE`, roleID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, db.MapError(err)
	}
	return true, nil
}

func (r *pgTxRepository) ExistingModuleIDs(ctx context.Context, moduleIDs []int64) ([]int64, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT id FROM modules WHERE id = ANY($1) ORDER BY id`, moduleIDs)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, db.MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return ids, nil
}

func (r *pgTxRepository) UpsertRoleModule(ctx context.Context, roleID, moduleID int64, permission Permission) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO role_modules (role_id, module_id, permission) VALUES ($1, $2, $3)
		 ON CONFLICT (role_id, module_id) DO UPDATE SET permission = EXCLUDED.permission`,
		roleID, moduleID, string(permission))
	return db.MapError(err)
}
