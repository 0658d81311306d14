package dto

import (
	"time"

	"github.com/slicehouse/pizzeria/internal/domain"
)

// CatalogItemRequest creates or edits a component. Omitted fields are left unchanged on edit.
type CatalogItemRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description  *string  `json:"description" validate:"omitempty,max=500"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	ImageURL     *string  `json:"image_url" validate:"omitempty,max=500"`
	Stock        *int     `json:"stock" validate:"omitempty,gte=0"`
	Threshold    *int     `json:"threshold" validate:"omitempty,gte=0"`
	IsVegetarian *bool    `json:"is_vegetarian"`
}

// CatalogItemResponse is a component as shown to clients.
type CatalogItemResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	ImageURL     string    `json:"image_url,omitempty"`
	Stock        int       `json:"stock"`
	Threshold    int       `json:"threshold"`
	IsVegetarian *bool     `json:"is_vegetarian,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LowStockItemResponse is one entry of a low stock report.
type LowStockItemResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

func CatalogItem(item domain.CatalogItem) CatalogItemResponse {
	resp := CatalogItemResponse{
		ID:          item.ID,
		Kind:        string(item.Kind),
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		ImageURL:    item.ImageURL,
		Stock:       item.Stock,
		Threshold:   item.Threshold,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if item.Kind == domain.KindTopping {
		veg := item.IsVegetarian
		resp.IsVegetarian = &veg
	}
	return resp
}

func CatalogItems(items []domain.CatalogItem) []CatalogItemResponse {
	out := make([]CatalogItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, CatalogItem(item))
	}
	return out
}

func LowStockItems(items []domain.LowStockItem) []LowStockItemResponse {
	out := make([]LowStockItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, LowStockItemResponse{
			ID:        item.ID,
			Kind:      string(item.Kind),
			Name:      item.Name,
			Stock:     item.Stock,
			Threshold: item.Threshold,
		})
	}
	return out
}
