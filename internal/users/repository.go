package users

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accesshub/accesshub/internal/platform/db"
	"github.com/accesshub/accesshub/internal/shared"
)

// Repository defines data access for user accounts.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, name, email, passwordHash string, role shared.RoleTag) (User, error)
}

// TxRepository defines the delete sequence that must share one transaction
// so the admin-protection check cannot race a concurrent delete.
type TxRepository interface {
	RoleTagForUpdate(ctx context.Context, id int64) (shared.RoleTag, error)
	DeleteUser(ctx context.Context, id int64) error
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

func (r *pgRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, role, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt); err != nil {
			return nil, db.MapError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return users, nil
}

func (r *pgRepository) CreateUser(ctx context.Context, name, email, passwordHash string, role shared.RoleTag) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, email, role, created_at`,
		name, email, passwordHash, string(role)).
		Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, db.MapError(err)
	}
	return user, nil
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) RoleTagForUpdate(ctx context.Context, id int64) (shared.RoleTag, error) {
	var tag string
	err := r.tx.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&tag)
	if err != nil {
		return "", db.MapError(err)
	}
	return shared.RoleTag(tag), nil
}

func (r *pgTxRepository) DeleteUser(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return db.MapError(err)
}
