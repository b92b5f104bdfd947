package ports

import (
	"context"

	"github.com/sweetshop/inventory-api/internal/core/domain"
)

// TokenValidator checks a raw session token and returns the claim it
// carries. Validation is self-contained: no store lookup is performed.
type TokenValidator interface {
	Validate(token string) (domain.Claim, error)
}

type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	// Login verifies credentials and mints a session token. Unknown
	// username and wrong password are indistinguishable to the caller.
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	TokenValidator
}
