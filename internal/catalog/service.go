package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cache"
	"github.com/noah-isme/backend-pos/internal/store"
)

// Cache keys for the read-through catalog listings.
const (
	keyProducts   = "catalog:products"
	keyCategories = "catalog:categories"
)

// Service reads the catalog owned by the back office. Listings go through a
// short-lived cache; single-product lookups always hit the store so stock
// checks see fresh numbers.
type Service struct {
	Store store.Repository
	Cache cache.Cache
	Log   zerolog.Logger
}

// Products lists the catalog, cached.
func (s *Service) Products(ctx context.Context) ([]store.Product, error) {
	var products []store.Product
	if s.Cache.GetJSON(ctx, keyProducts, &products) {
		return products, nil
	}
	products, err := s.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	s.Cache.SetJSON(ctx, keyProducts, products)
	return products, nil
}

// Categories lists catalog groupings, cached.
func (s *Service) Categories(ctx context.Context) ([]store.Category, error) {
	var categories []store.Category
	if s.Cache.GetJSON(ctx, keyCategories, &categories) {
		return categories, nil
	}
	categories, err := s.Store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.Cache.SetJSON(ctx, keyCategories, categories)
	return categories, nil
}

// Product fetches one product, uncached.
func (s *Service) Product(ctx context.Context, id uuid.UUID) (store.Product, error) {
	return s.Store.GetProduct(ctx, id)
}

// ProductByBarcode resolves a scanned barcode, uncached.
func (s *Service) ProductByBarcode(ctx context.Context, barcode string) (store.Product, error) {
	return s.Store.GetProductByBarcode(ctx, barcode)
}
