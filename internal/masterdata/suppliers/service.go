package suppliers

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	mdshared "github.com/quarry-erp/quarry-erp/internal/masterdata/shared"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters.Normalize())
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, fmt.Errorf("supplier id: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	supplier.IsActive = true
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, supplier)
}

func (s *Service) Update(ctx context.Context, id int64, supplier Supplier) error {
	if id <= 0 {
		return fmt.Errorf("supplier id: %w", shared.ErrValidation)
	}
	if err := s.validate(supplier); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, supplier)
}

func (s *Service) Catalog(ctx context.Context, supplierID int64) ([]CatalogItem, error) {
	if supplierID <= 0 {
		return nil, fmt.Errorf("supplier id: %w", shared.ErrValidation)
	}
	return s.repo.ListCatalog(ctx, supplierID)
}

func (s *Service) PutCatalogItem(ctx context.Context, item CatalogItem) (CatalogItem, error) {
	if item.SupplierID <= 0 {
		return CatalogItem{}, fmt.Errorf("supplier id: %w", shared.ErrValidation)
	}
	if err := s.validateCatalogItem(item); err != nil {
		return CatalogItem{}, err
	}
	return s.repo.UpsertCatalogItem(ctx, item)
}

// UnitPrice resolves the current catalog price for a supplier SKU. It backs
// requisition items that reference the catalog without naming a price.
func (s *Service) UnitPrice(ctx context.Context, supplierID int64, sku string) (decimal.Decimal, error) {
	return s.repo.CatalogPrice(ctx, supplierID, sku)
}

// SupplierEmail resolves the dispatch address for an issued purchase order.
func (s *Service) SupplierEmail(ctx context.Context, supplierID int64) (string, error) {
	supplier, err := s.repo.Get(ctx, supplierID)
	if err != nil {
		return "", err
	}
	return supplier.Email, nil
}
