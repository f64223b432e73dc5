package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bazaarhq/bazaar-backend/internal/modules/vendor"
	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/bazaarhq/bazaar-backend/pkg/cache"
	"github.com/google/uuid"
)

type service struct {
	repo    Repository
	vendors VendorDirectory
	cache   *cache.Cache
}

// NewService creates a new catalog service.
func NewService(repo Repository, vendors VendorDirectory, c *cache.Cache) Service {
	return &service{repo: repo, vendors: vendors, cache: c}
}

func (s *service) Create(ctx context.Context, vendorUserID string, in CreateProduct) (*Product, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.SKU) == "" {
		return nil, apperror.New(apperror.KindValidation, "title and sku are required")
	}
	if in.BasePrice < 0 || in.Stock < 0 {
		return nil, apperror.New(apperror.KindValidation, "price and stock must not be negative")
	}
	v, err := s.vendors.GetByUserID(ctx, vendorUserID)
	if err != nil {
		return nil, err
	}
	p := &Product{
		ID:          uuid.New(),
		VendorID:    v.ID,
		Title:       strings.TrimSpace(in.Title),
		Slug:        vendor.Slugify(in.Title) + "-" + strings.ToLower(in.SKU),
		SKU:         in.SKU,
		Description: in.Description,
		BasePrice:   in.BasePrice,
		Stock:       in.Stock,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.cache.DeletePattern(ctx, "search:*")
	return p, nil
}

func (s *service) Get(ctx context.Context, id string) (*Product, error) {
	key := cache.ProductKey(id)
	if raw, ok := s.cache.Get(ctx, key); ok {
		p := &Product{}
		if err := json.Unmarshal(raw, p); err == nil {
			return p, nil
		}
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(p); err == nil {
		s.cache.Set(ctx, key, raw, cache.ProductTTL)
	}
	return p, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *service) Search(ctx context.Context, f SearchFilter) (*SearchResult, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	key := searchCacheKey(f)
	if raw, ok := s.cache.Get(ctx, key); ok {
		result := &SearchResult{}
		if err := json.Unmarshal(raw, result); err == nil {
			return result, nil
		}
	}
	result, err := s.repo.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, key, raw, cache.SearchTTL)
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, vendorUserID, productID string, in UpdateProduct) (*Product, error) {
	p, err := s.ownedProduct(ctx, vendorUserID, productID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) != "" {
		p.Title = strings.TrimSpace(in.Title)
		p.Slug = vendor.Slugify(in.Title) + "-" + strings.ToLower(p.SKU)
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.BasePrice > 0 {
		p.BasePrice = in.BasePrice
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, productID)
	return updated, nil
}

func (s *service) Deactivate(ctx context.Context, vendorUserID, productID string) (*Product, error) {
	if _, err := s.ownedProduct(ctx, vendorUserID, productID); err != nil {
		return nil, err
	}
	p, err := s.repo.SetActive(ctx, productID, false)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, productID)
	return p, nil
}

func (s *service) LowStock(ctx context.Context, vendorUserID string) ([]*Product, error) {
	v, err := s.vendors.GetByUserID(ctx, vendorUserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLowStock(ctx, v.ID.String(), LowStockThreshold)
}

func (s *service) ownedProduct(ctx context.Context, vendorUserID, productID string) (*Product, error) {
	v, err := s.vendors.GetByUserID(ctx, vendorUserID)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.VendorID != v.ID {
		return nil, fmt.Errorf("product %s: %w", productID, apperror.ErrForbidden)
	}
	return p, nil
}

// invalidate drops the product entry and every cached search page. Search
// pages cannot be invalidated selectively, so they are cleared wholesale.
func (s *service) invalidate(ctx context.Context, productID string) {
	s.cache.Delete(ctx, cache.ProductKey(productID))
	s.cache.DeletePattern(ctx, "search:*")
}

func searchCacheKey(f SearchFilter) string {
	params := url.Values{}
	if f.Query != "" {
		params.Set("q", f.Query)
	}
	if f.VendorID != "" {
		params.Set("vendor", f.VendorID)
	}
	if f.MinPrice > 0 {
		params.Set("min_price", strconv.FormatFloat(f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice > 0 {
		params.Set("max_price", strconv.FormatFloat(f.MaxPrice, 'f', -1, 64))
	}
	params.Set("page", strconv.Itoa(f.Page))
	params.Set("limit", strconv.Itoa(f.Limit))
	return cache.SearchKey(params)
}
