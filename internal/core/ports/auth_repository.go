package ports

import (
	"context"

	"github.com/sweetshop/inventory-api/internal/core/domain"
)

// AuthRepository defines the interface for user persistence.
type AuthRepository interface {
	// Create inserts a new user. Username uniqueness is enforced by the
	// store; a concurrent duplicate surfaces as domain.ErrUserExists and
	// must not leave a partial record behind.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}
