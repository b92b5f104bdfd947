package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/sweetshop/inventory-api/internal/core/domain"
	"github.com/sweetshop/inventory-api/internal/core/ports"
)

// sweetFields is the explicit allow-list of caller-settable fields, in the
// order they are validated. The id is server-owned and never settable.
var sweetFields = []string{"name", "category", "price", "quantity"}

// InventoryService enforces the catalog invariants: allow-list validation
// on writes, admin gating on delete/restock, and single-unit atomic stock
// adjustments that can never drive quantity negative.
type InventoryService struct {
	repo   ports.SweetRepository
	replay ports.ReplayGuard
	log    zerolog.Logger
}

func NewInventoryService(repo ports.SweetRepository, replay ports.ReplayGuard, log zerolog.Logger) *InventoryService {
	return &InventoryService{repo: repo, replay: replay, log: log}
}

func requireAuth(claim domain.Claim) error {
	if claim.Subject == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}

// requireAdmin checks privilege before anything else so an unprivileged
// caller learns nothing about record existence.
func requireAdmin(claim domain.Claim) error {
	if err := requireAuth(claim); err != nil {
		return err
	}
	if !claim.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

// Add validates and persists a new sweet. All four fields are required;
// the first missing or malformed field is reported by name.
func (s *InventoryService) Add(ctx context.Context, claim domain.Claim, fields map[string]any) (*domain.Sweet, error) {
	if err := requireAuth(claim); err != nil {
		return nil, err
	}

	for _, f := range sweetFields {
		if _, ok := fields[f]; !ok {
			return nil, domain.NewValidationError(f, "is required")
		}
	}
	if err := rejectUnknownFields(fields); err != nil {
		return nil, err
	}

	sweet := &domain.Sweet{}
	var err error
	if sweet.Name, err = coerceName("name", fields["name"]); err != nil {
		return nil, err
	}
	if sweet.Category, err = coerceName("category", fields["category"]); err != nil {
		return nil, err
	}
	if sweet.Price, err = coercePrice("price", fields["price"]); err != nil {
		return nil, err
	}
	if sweet.Quantity, err = coerceQuantity("quantity", fields["quantity"]); err != nil {
		return nil, err
	}

	created, err := s.repo.Insert(ctx, sweet)
	if err != nil {
		return nil, fmt.Errorf("add sweet: %w", err)
	}

	s.log.Info().Str("id", created.ID).Str("name", created.Name).Str("by", claim.Subject).Msg("sweet added")
	return created, nil
}

// List returns every catalog record.
func (s *InventoryService) List(ctx context.Context, claim domain.Claim) ([]domain.Sweet, error) {
	if err := requireAuth(claim); err != nil {
		return nil, err
	}
	return s.repo.FindAll(ctx)
}

// Search applies the conjunctive filters. An empty filter set is
// equivalent to List.
func (s *InventoryService) Search(ctx context.Context, claim domain.Claim, in ports.SearchInput) ([]domain.Sweet, error) {
	if err := requireAuth(claim); err != nil {
		return nil, err
	}

	filter := ports.SweetFilter{Name: in.Name, Category: in.Category}
	if in.PriceMin != "" {
		v, err := strconv.ParseFloat(in.PriceMin, 64)
		if err != nil {
			return nil, domain.NewValidationError("price_min", "must be numeric")
		}
		filter.PriceMin = &v
	}
	if in.PriceMax != "" {
		v, err := strconv.ParseFloat(in.PriceMax, 64)
		if err != nil {
			return nil, domain.NewValidationError("price_max", "must be numeric")
		}
		filter.PriceMax = &v
	}

	return s.repo.Search(ctx, filter)
}

// Update applies a partial update. Only allow-listed fields are accepted;
// unknown keys (including "id") are rejected before anything is written.
func (s *InventoryService) Update(ctx context.Context, claim domain.Claim, id string, fields map[string]any) (*domain.Sweet, error) {
	if err := requireAuth(claim); err != nil {
		return nil, err
	}

	if err := rejectUnknownFields(fields); err != nil {
		return nil, err
	}

	var patch ports.SweetPatch
	if v, ok := fields["name"]; ok {
		name, err := coerceName("name", v)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if v, ok := fields["category"]; ok {
		category, err := coerceName("category", v)
		if err != nil {
			return nil, err
		}
		patch.Category = &category
	}
	if v, ok := fields["price"]; ok {
		price, err := coercePrice("price", v)
		if err != nil {
			return nil, err
		}
		patch.Price = &price
	}
	if v, ok := fields["quantity"]; ok {
		quantity, err := coerceQuantity("quantity", v)
		if err != nil {
			return nil, err
		}
		patch.Quantity = &quantity
	}

	if patch.IsEmpty() {
		return s.repo.FindByID(ctx, id)
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("id", id).Str("by", claim.Subject).Msg("sweet updated")
	return updated, nil
}

// Delete permanently removes a record. Admin only.
func (s *InventoryService) Delete(ctx context.Context, claim domain.Claim, id string) error {
	if err := requireAdmin(claim); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("id", id).Str("by", claim.Subject).Msg("sweet deleted")
	return nil
}

// Purchase atomically decrements stock by one unit. With quantity already
// at zero it fails with ErrOutOfStock and leaves the record untouched.
func (s *InventoryService) Purchase(ctx context.Context, claim domain.Claim, id, idempotencyKey string) (*domain.Sweet, error) {
	if err := requireAuth(claim); err != nil {
		return nil, err
	}

	// The claim is taken before the decrement so concurrent retries
	// sharing a key race on the atomic claim, not on the stock write.
	claimed := false
	if idempotencyKey != "" {
		won, err := s.replay.Claim(ctx, idempotencyKey)
		if err != nil {
			s.log.Warn().Err(err).Str("id", id).Msg("replay claim failed, processing anyway")
		} else if !won {
			s.log.Info().Str("id", id).Str("idempotency_key", idempotencyKey).Msg("purchase replay")
			return s.repo.FindByID(ctx, id)
		} else {
			claimed = true
		}
	}

	sweet, err := s.repo.AdjustQuantity(ctx, id, -1)
	if err != nil {
		// Nothing was decremented; free the key so the client can retry.
		if claimed {
			if relErr := s.replay.Release(ctx, idempotencyKey); relErr != nil {
				s.log.Warn().Err(relErr).Str("id", id).Msg("failed to release replay key")
			}
		}
		if errors.Is(err, domain.ErrSweetNotFound) {
			// The conditional write matched nothing: either the record is
			// gone or its stock is exhausted.
			if _, findErr := s.repo.FindByID(ctx, id); findErr == nil {
				return nil, domain.ErrOutOfStock
			}
			return nil, domain.ErrSweetNotFound
		}
		return nil, fmt.Errorf("purchase: %w", err)
	}

	s.log.Info().Str("id", id).Str("by", claim.Subject).Int("quantity", sweet.Quantity).Msg("sweet purchased")
	return sweet, nil
}

// Restock atomically increments stock by one unit. Admin only, with the
// privilege checked before the record lookup.
func (s *InventoryService) Restock(ctx context.Context, claim domain.Claim, id string) (*domain.Sweet, error) {
	if err := requireAdmin(claim); err != nil {
		return nil, err
	}

	sweet, err := s.repo.AdjustQuantity(ctx, id, 1)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("id", id).Str("by", claim.Subject).Int("quantity", sweet.Quantity).Msg("sweet restocked")
	return sweet, nil
}

// rejectUnknownFields fails on any key outside the allow-list. Keys are
// scanned in sorted order so the reported field is deterministic.
func rejectUnknownFields(fields map[string]any) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == "id" {
			return domain.NewValidationError("id", "is immutable")
		}
		known := false
		for _, f := range sweetFields {
			if k == f {
				known = true
				break
			}
		}
		if !known {
			return domain.NewValidationError(k, "is not a recognized field")
		}
	}
	return nil
}

func coerceName(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", domain.NewValidationError(field, "must be a non-empty string")
	}
	return s, nil
}

// coercePrice accepts JSON numbers and numeric strings, matching the
// loose inputs the API has always taken.
func coercePrice(field string, v any) (float64, error) {
	var p float64
	switch n := v.(type) {
	case float64:
		p = n
	case int:
		p = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, domain.NewValidationError(field, "must be a number")
		}
		p = parsed
	default:
		return 0, domain.NewValidationError(field, "must be a number")
	}
	if p < 0 {
		return 0, domain.NewValidationError(field, "must not be negative")
	}
	return p, nil
}

func coerceQuantity(field string, v any) (int, error) {
	var q int
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, domain.NewValidationError(field, "must be an integer")
		}
		q = int(n)
	case int:
		q = n
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, domain.NewValidationError(field, "must be an integer")
		}
		q = parsed
	default:
		return 0, domain.NewValidationError(field, "must be an integer")
	}
	if q < 0 {
		return 0, domain.NewValidationError(field, "must not be negative")
	}
	return q, nil
}
