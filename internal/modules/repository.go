package modules

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accesshub/accesshub/internal/platform/db"
)

// Repository defines data access for modules.
type Repository interface {
	ListModules(ctx context.Context) ([]Module, error)
	CreateModule(ctx context.Context, name, description string) (Module, error)
	DeleteModule(ctx context.Context, id int64) (bool, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) ListModules(ctx context.Context) ([]Module, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description FROM modules ORDER BY id`)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var mods []Module
	for rows.Next() {
		mod, err := scanModule(rows)
		if err != nil {
			return nil, db.MapError(err)
		}
		mods = append(mods, mod)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return mods, nil
}

func (r *pgRepository) CreateModule(ctx context.Context, name, description string) (Module, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO modules (name, description) VALUES ($1, NULLIF($2, ''))
		 RETURNING id, name, description`,
		name, description)
	mod, err := scanModule(row)
	if err != nil {
		return Module{}, db.MapError(err)
	}
	return mod, nil
}

func (r *pgRepository) DeleteModule(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanModule(row pgx.Row) (Module, error) {
	var (
		mod  Module
		desc sql.NullString
	)
	if err := row.Scan(&mod.ID, &mod.Name, &desc); err != nil {
		return Module{}, err
	}
	mod.Description = desc.String
	return mod, nil
}
