package service

import (
	"context"
	"strings"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

// CatalogService exposes the component catalog and its stock levels.
type CatalogService struct {
	store repository.UnitOfWork
}

// CatalogInput holds fields for creating or updating a component. Nil fields are left unchanged on update.
type CatalogInput struct {
	Name         *string
	Description  *string
	Price        *float64
	ImageURL     *string
	Stock        *int
	Threshold    *int
	IsVegetarian *bool
}

func NewCatalogService(store repository.UnitOfWork) *CatalogService {
	return &CatalogService{store: store}
}

// List returns components of kind. Out of stock items are only visible to admins.
func (s *CatalogService) List(ctx context.Context, kind domain.CatalogKind, includeOutOfStock bool) ([]domain.CatalogItem, error) {
	if !kind.Valid() {
		return nil, apperrors.NewNotFound("catalog kind", map[string]any{"kind": kind})
	}
	return s.store.Repositories().Catalog.Kind(kind).List(ctx, repository.CatalogFilter{InStockOnly: !includeOutOfStock})
}

func (s *CatalogService) Create(ctx context.Context, kind domain.CatalogKind, input CatalogInput) (*domain.CatalogItem, error) {
	if !kind.Valid() {
		return nil, apperrors.NewNotFound("catalog kind", map[string]any{"kind": kind})
	}
	fields := map[string]string{}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		fields["name"] = "name is required"
	}
	if input.Price == nil {
		fields["price"] = "price is required"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields)
	}

	item := &domain.CatalogItem{Kind: kind, Threshold: 10}
	if err := applyCatalogInput(item, kind, input); err != nil {
		return nil, err
	}
	if err := s.store.Repositories().Catalog.Kind(kind).Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Update edits a component under a row lock. A new stock level is applied as a delta from the
// locked value so it composes with order decrements instead of overwriting them.
func (s *CatalogService) Update(ctx context.Context, kind domain.CatalogKind, id string, input CatalogInput) (*domain.CatalogItem, error) {
	if !kind.Valid() {
		return nil, apperrors.NewNotFound("catalog kind", map[string]any{"kind": kind})
	}
	var item *domain.CatalogItem
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		repo := repos.Catalog.Kind(kind)
		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, string(kind))
		}
		locked := current.Stock
		if err := applyCatalogInput(current, kind, input); err != nil {
			return err
		}
		target := current.Stock
		if err := repo.Update(ctx, current); err != nil {
			return notFound(err, string(kind))
		}
		if input.Stock != nil && target != locked {
			adjusted, err := repo.AdjustStock(ctx, id, target-locked)
			if err != nil {
				return err
			}
			current.Stock, current.UpdatedAt = adjusted.Stock, adjusted.UpdatedAt
		}
		item = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CatalogService) Delete(ctx context.Context, kind domain.CatalogKind, id string) error {
	if !kind.Valid() {
		return apperrors.NewNotFound("catalog kind", map[string]any{"kind": kind})
	}
	return notFound(s.store.Repositories().Catalog.Kind(kind).Delete(ctx, id), string(kind))
}

// LowStock lists every component at or below its threshold, across all kinds.
func (s *CatalogService) LowStock(ctx context.Context) ([]domain.LowStockItem, error) {
	var out []domain.LowStockItem
	for _, kind := range domain.CatalogKinds {
		items, err := s.store.Repositories().Catalog.Kind(kind).List(ctx, repository.CatalogFilter{LowStockOnly: true})
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			out = append(out, lowStockItem(item))
		}
	}
	return out, nil
}

func applyCatalogInput(item *domain.CatalogItem, kind domain.CatalogKind, input CatalogInput) error {
	fields := map[string]string{}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			item.Name = name
		} else {
			fields["name"] = "name is required"
		}
	}
	if input.Description != nil {
		item.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if *input.Price < 0 {
			fields["price"] = "price must not be negative"
		} else {
			item.Price = domain.RoundCents(*input.Price)
		}
	}
	if input.ImageURL != nil {
		item.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			fields["stock"] = "stock must not be negative"
		} else {
			item.Stock = *input.Stock
		}
	}
	if input.Threshold != nil {
		if *input.Threshold < 0 {
			fields["threshold"] = "threshold must not be negative"
		} else {
			item.Threshold = *input.Threshold
		}
	}
	if input.IsVegetarian != nil && kind == domain.KindTopping {
		item.IsVegetarian = *input.IsVegetarian
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError(fields)
	}
	return nil
}

func lowStockItem(item domain.CatalogItem) domain.LowStockItem {
	return domain.LowStockItem{
		ID:        item.ID,
		Kind:      item.Kind,
		Name:      item.Name,
		Stock:     item.Stock,
		Threshold: item.Threshold,
	}
}
