package ports

import (
	"context"

	"github.com/sweetshop/inventory-api/internal/core/domain"
)

// SearchInput carries the raw search filters as received from the caller.
// Price bounds stay strings so the service owns their validation.
type SearchInput struct {
	Name     string
	Category string
	PriceMin string
	PriceMax string
}

// InventoryService defines the use-case operations over the sweet catalog.
// Every operation requires a valid claim; Delete and Restock additionally
// require the admin privilege, checked before the record lookup so a
// non-admin cannot probe record existence.
//
// Add and Update take the caller-supplied fields as a raw map: both
// operations validate against an explicit allow-list and coerce each field
// before anything touches the store.
type InventoryService interface {
	Add(ctx context.Context, claim domain.Claim, fields map[string]any) (*domain.Sweet, error)
	List(ctx context.Context, claim domain.Claim) ([]domain.Sweet, error)
	Search(ctx context.Context, claim domain.Claim, in SearchInput) ([]domain.Sweet, error)
	Update(ctx context.Context, claim domain.Claim, id string, fields map[string]any) (*domain.Sweet, error)
	Delete(ctx context.Context, claim domain.Claim, id string) error
	// Purchase decrements stock by exactly one unit. The optional
	// idempotencyKey makes client retries safe: a key already seen within
	// the replay window returns the current record without a second
	// decrement.
	Purchase(ctx context.Context, claim domain.Claim, id, idempotencyKey string) (*domain.Sweet, error)
	Restock(ctx context.Context, claim domain.Claim, id string) (*domain.Sweet, error)
}
