package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/accesshub/accesshub/internal/shared"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	account := &Account{ID: 42, Role: shared.RoleAdmin}

	raw, err := issuer.Issue(account)
	require.NoError(t, err)

	claims, principal, err := issuer.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, int64(42), principal.ID)
	require.Equal(t, shared.RoleAdmin, principal.Role)
	require.NotEmpty(t, claims.ID, "every token carries a unique id for revocation")
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := NewTokenIssuer("secret-a", time.Hour).Issue(&Account{ID: 1, Role: shared.RoleUser})
	require.NoError(t, err)

	_, _, err = NewTokenIssuer("secret-b", time.Hour).Verify(raw)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	raw, err := issuer.Issue(&Account{ID: 1, Role: shared.RoleUser})
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = issuer.Verify(raw)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifyRejectsUnknownRoleClaim(t *testing.T) {
	secret := "test-secret"
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "superuser",
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, _, err = NewTokenIssuer(secret, time.Hour).Verify(raw)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifyRejectsNonNumericSubject(t *testing.T) {
	secret := "test-secret"
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "not-an-id",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: string(shared.RoleUser),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, _, err = NewTokenIssuer(secret, time.Hour).Verify(raw)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
