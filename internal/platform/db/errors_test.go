package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/accesshub/accesshub/internal/shared"
)

func TestMapError(t *testing.T) {
	require.NoError(t, MapError(nil))

	require.ErrorIs(t, MapError(pgx.ErrNoRows), shared.ErrNotFound)

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	err := MapError(unique)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Contains(t, err.Error(), "users_email_key")

	fk := &pgconn.PgError{Code: "23503", ConstraintName: "user_roles_user_id_fkey"}
	require.ErrorIs(t, MapError(fk), shared.ErrInvalidReference)

	require.ErrorIs(t, MapError(errors.New("connection refused")), shared.ErrStoreUnavailable)
}
