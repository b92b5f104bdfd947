package ports

import (
	"context"

	"github.com/sweetshop/inventory-api/internal/core/domain"
)

// SweetFilter carries the conjunctive search criteria. Zero values mean
// "no filter" for that criterion.
type SweetFilter struct {
	Name     string   // case-insensitive substring match
	Category string   // exact match
	PriceMin *float64 // inclusive lower bound
	PriceMax *float64 // inclusive upper bound
}

// SweetPatch is the allow-list of updatable fields. Nil means "leave as is".
type SweetPatch struct {
	Name     *string
	Category *string
	Price    *float64
	Quantity *int
}

// IsEmpty reports whether the patch changes nothing.
func (p SweetPatch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.Price == nil && p.Quantity == nil
}

// SweetRepository defines persistence operations for catalog records.
type SweetRepository interface {
	Insert(ctx context.Context, s *domain.Sweet) (*domain.Sweet, error)
	FindByID(ctx context.Context, id string) (*domain.Sweet, error)
	// FindAll returns every record in natural storage order, which is
	// stable within a snapshot.
	FindAll(ctx context.Context) ([]domain.Sweet, error)
	Search(ctx context.Context, f SweetFilter) ([]domain.Sweet, error)
	Update(ctx context.Context, id string, patch SweetPatch) (*domain.Sweet, error)
	Delete(ctx context.Context, id string) error
	// AdjustQuantity atomically adds delta to the record's quantity as a
	// single compare-and-swap: the write only happens when the resulting
	// quantity stays non-negative. When no record matches the id and the
	// stock floor, it returns domain.ErrSweetNotFound; the caller decides
	// whether that means a missing record or insufficient stock.
	AdjustQuantity(ctx context.Context, id string, delta int) (*domain.Sweet, error)
}
