package roles

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accesshub/accesshub/internal/platform/db"
)

// Repository defines data access for roles.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	ListRoles(ctx context.Context) ([]Role, error)
	ListRolesByCreator(ctx context.Context, userID int64) ([]Role, error)
	CreateRole(ctx context.Context, name string, createdBy int64) (Role, error)
}

// TxRepository defines the mutation sequence that must share one
// transaction so ownership checks cannot race concurrent deletes.
type TxRepository interface {
	RoleForUpdate(ctx context.Context, id int64) (Role, error)
	UpdateRoleName(ctx context.Context, id int64, name string) error
	DeleteRole(ctx context.Context, id int64) error
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

func (r *pgRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_by FROM roles ORDER BY id`)
	if err != nil {
		return nil, db.MapError(err)
	}
	return scanRoles(rows)
}

func (r *pgRepository) ListRolesByCreator(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_by FROM roles WHERE created_by = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, db.MapError(err)
	}
	return scanRoles(rows)
}

func (r *pgRepository) CreateRole(ctx context.Context, name string, createdBy int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, created_by) VALUES ($1, $2)
		 RETURNING id, name, created_by`,
		name, createdBy).
		Scan(&role.ID, &role.Name, &role.CreatedBy)
	if err != nil {
		return Role{}, db.MapError(err)
	}
	return role, nil
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedBy); err != nil {
			return nil, db.MapError(err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return roles, nil
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) RoleForUpdate(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.tx.QueryRow(ctx,
		`SELECT id, name, created_by FROM roles WHERE id = $1 FOR UPDATE`, id).
		Scan(&role.ID, &role.Name, &role.CreatedBy)
	if err != nil {
		return Role{}, db.MapError(err)
	}
	return role, nil
}

func (r *pgTxRepository) UpdateRoleName(ctx context.Context, id int64, name string) error {
	_, err := r.tx.Exec(ctx, `UPDATE roles SET name = $1 WHERE id = $2`, name, id)
	return db.MapError(err)
}

func (r *pgTxRepository) DeleteRole(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	return db.MapError(err)
}
