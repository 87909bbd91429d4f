package suppliers

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	mdshared "github.com/quarry-erp/quarry-erp/internal/masterdata/shared"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type fakeRepo struct {
	suppliers map[int64]Supplier
	catalog   map[string]CatalogItem
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{suppliers: map[int64]Supplier{}, catalog: map[string]CatalogItem{}}
}

func catalogKey(supplierID int64, sku string) string {
	return fmt.Sprintf("%d:%s", supplierID, sku)
}

func (r *fakeRepo) List(ctx context.Context, filters mdshared.ListFilters) ([]Supplier, int, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *fakeRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, fmt.Errorf("supplier %d: %w", id, shared.ErrNotFound)
	}
	return s, nil
}

func (r *fakeRepo) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	r.nextID++
	supplier.ID = r.nextID
	r.suppliers[supplier.ID] = supplier
	return supplier, nil
}

func (r *fakeRepo) Update(ctx context.Context, id int64, supplier Supplier) error {
	if _, ok := r.suppliers[id]; !ok {
		return fmt.Errorf("supplier %d: %w", id, shared.ErrNotFound)
	}
	supplier.ID = id
	r.suppliers[id] = supplier
	return nil
}

func (r *fakeRepo) ListCatalog(ctx context.Context, supplierID int64) ([]CatalogItem, error) {
	var out []CatalogItem
	for _, it := range r.catalog {
		if it.SupplierID == supplierID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpsertCatalogItem(ctx context.Context, item CatalogItem) (CatalogItem, error) {
	r.nextID++
	item.ID = r.nextID
	r.catalog[catalogKey(item.SupplierID, item.SKU)] = item
	return item, nil
}

func (r *fakeRepo) CatalogPrice(ctx context.Context, supplierID int64, sku string) (decimal.Decimal, error) {
	it, ok := r.catalog[catalogKey(supplierID, sku)]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("catalog item %s: %w", sku, shared.ErrNotFound)
	}
	return it.UnitPrice, nil
}

func TestCreateRequiresEmail(t *testing.T) {
	svc := NewService(newFakeRepo())
	_, err := svc.Create(context.Background(), Supplier{Code: "SUP-1", Name: "Gravel Co"})
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.Create(context.Background(), Supplier{Code: "SUP-1", Name: "Gravel Co", Email: "orders@gravel.test"})
	require.NoError(t, err)
	require.True(t, created.IsActive)
}

func TestUnitPriceReflectsLatestCatalog(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	sup, err := svc.Create(ctx, Supplier{Code: "SUP-1", Name: "Gravel Co", Email: "orders@gravel.test"})
	require.NoError(t, err)

	_, err = svc.PutCatalogItem(ctx, CatalogItem{
		SupplierID:  sup.ID,
		SKU:         "GRV-20",
		Description: "gravel 20mm",
		Unit:        "t",
		UnitPrice:   decimal.RequireFromString("45.50"),
	})
	require.NoError(t, err)

	price, err := svc.UnitPrice(ctx, sup.ID, "GRV-20")
	require.NoError(t, err)
	require.Equal(t, "45.50", price.StringFixed(2))

	_, err = svc.PutCatalogItem(ctx, CatalogItem{
		SupplierID:  sup.ID,
		SKU:         "GRV-20",
		Description: "gravel 20mm",
		Unit:        "t",
		UnitPrice:   decimal.RequireFromString("47.00"),
	})
	require.NoError(t, err)

	price, err = svc.UnitPrice(ctx, sup.ID, "GRV-20")
	require.NoError(t, err)
	require.Equal(t, "47.00", price.StringFixed(2))

	_, err = svc.UnitPrice(ctx, sup.ID, "MISSING")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCatalogItemValidation(t *testing.T) {
	svc := NewService(newFakeRepo())
	_, err := svc.PutCatalogItem(context.Background(), CatalogItem{
		SupplierID: 1,
		UnitPrice:  decimal.RequireFromString("-1"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSupplierEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	sup, err := svc.Create(context.Background(), Supplier{Code: "SUP-1", Name: "Gravel Co", Email: "orders@gravel.test"})
	require.NoError(t, err)

	email, err := svc.SupplierEmail(context.Background(), sup.ID)
	require.NoError(t, err)
	require.Equal(t, "orders@gravel.test", email)
}
