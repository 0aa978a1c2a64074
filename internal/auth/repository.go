package auth

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accesshub/accesshub/internal/platform/db"
	"github.com/accesshub/accesshub/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	// RegisterUser inserts the account, promoting it to admin when no
	// admin-tagged account exists yet. The admin count and the insert run
	// in one transaction so two concurrent first registrations cannot both
	// be promoted.
	RegisterUser(ctx context.Context, name, email, passwordHash string) (*Account, error)
}

var _ Repository = (*PGRepository)(nil)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, role, created_at`

func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE email = $1`, email)
	return scanAccount(row)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	return scanAccount(row)
}

// registrationLockKey serialises first-admin promotion across concurrent
// registrations.
const registrationLockKey = 0x61636365

func (r *PGRepository) RegisterUser(ctx context.Context, name, email, passwordHash string) (*Account, error) {
	var account *Account
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(registrationLockKey)); err != nil {
			return db.MapError(err)
		}
		var adminCount int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&adminCount); err != nil {
			return db.MapError(err)
		}
		role := shared.RoleUser
		if adminCount == 0 {
			role = shared.RoleAdmin
		}
		row := tx.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash, role)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+accountColumns,
			name, email, passwordHash, string(role))
		acc, err := scanAccount(row)
		if err != nil {
			return err
		}
		account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &acc.Role, &acc.CreatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &acc, nil
}
