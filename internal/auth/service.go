package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/accesshub/accesshub/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	tokens  *TokenIssuer
	revoked *RevocationList
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, revoked *RevocationList) *Service {
	return &Service{repo: repo, tokens: tokens, revoked: revoked}
}

// Register creates an account. The first registered account is promoted to
// admin; every later one gets the user tag. A taken email surfaces as
// Conflict from the store's unique constraint.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Account, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", shared.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.RegisterUser(ctx, name, email, string(hash))
}

// Login validates credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, string, error) {
	account, err := s.repo.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(account)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// CurrentAccount loads the account behind a principal.
func (s *Service) CurrentAccount(ctx context.Context, principal shared.Principal) (*Account, error) {
	return s.repo.FindByID(ctx, principal.ID)
}

// VerifyToken checks signature, expiry and the revocation denylist, and
// returns the asserted principal.
func (s *Service) VerifyToken(ctx context.Context, raw string) (shared.Principal, error) {
	claims, principal, err := s.tokens.Verify(raw)
	if err != nil {
		return shared.Principal{}, err
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return shared.Principal{}, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
		}
		if revoked {
			return shared.Principal{}, fmt.Errorf("%w: token revoked", shared.ErrUnauthorized)
		}
	}
	return principal, nil
}

// Logout revokes the presented token until its natural expiry.
func (s *Service) Logout(ctx context.Context, raw string) error {
	claims, _, err := s.tokens.Verify(raw)
	if err != nil {
		return err
	}
	if s.revoked == nil {
		return nil
	}
	until := time.Now().Add(time.Minute)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return s.revoked.Revoke(ctx, claims.ID, until)
}
