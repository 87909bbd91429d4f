package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	mdshared "github.com/quarry-erp/quarry-erp/internal/masterdata/shared"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters mdshared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) error
	ListCatalog(ctx context.Context, supplierID int64) ([]CatalogItem, error)
	UpsertCatalogItem(ctx context.Context, item CatalogItem) (CatalogItem, error)
	CatalogPrice(ctx context.Context, supplierID int64, sku string) (decimal.Decimal, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const supplierColumns = `id, code, name, address, email, phone, is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.Email, &s.Phone, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Supplier, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Search != "" {
		where += ` AND (name ILIKE $` + strconv.Itoa(argNum) + ` OR code ILIKE $` + strconv.Itoa(argNum) + `)`
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + supplierColumns + ` FROM suppliers` + where +
		` ORDER BY code LIMIT $` + strconv.Itoa(argNum) + ` OFFSET $` + strconv.Itoa(argNum+1)
	args = append(args, filters.Limit, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, fmt.Errorf("supplier %d: %w", id, shared.ErrNotFound)
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	created, err := scanSupplier(r.pool.QueryRow(ctx, `INSERT INTO suppliers
		(code, name, address, email, phone, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	RETURNING `+supplierColumns,
		supplier.Code, supplier.Name, supplier.Address, supplier.Email, supplier.Phone, supplier.IsActive))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Supplier{}, fmt.Errorf("supplier code %s taken: %w", supplier.Code, shared.ErrConflict)
		}
		return Supplier{}, err
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, supplier Supplier) error {
	tag, err := r.pool.Exec(ctx, `UPDATE suppliers SET
		code = $1, name = $2, address = $3, email = $4, phone = $5, is_active = $6, updated_at = NOW()
	WHERE id = $7`,
		supplier.Code, supplier.Name, supplier.Address, supplier.Email, supplier.Phone, supplier.IsActive, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("supplier code %s taken: %w", supplier.Code, shared.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("supplier %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) ListCatalog(ctx context.Context, supplierID int64) ([]CatalogItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, supplier_id, sku, description, unit, unit_price::text, updated_at
		FROM supplier_catalog_items WHERE supplier_id = $1 ORDER BY sku`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CatalogItem
	for rows.Next() {
		var it CatalogItem
		var price string
		if err := rows.Scan(&it.ID, &it.SupplierID, &it.SKU, &it.Description, &it.Unit, &price, &it.UpdatedAt); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) UpsertCatalogItem(ctx context.Context, item CatalogItem) (CatalogItem, error) {
	var price string
	err := r.pool.QueryRow(ctx, `INSERT INTO supplier_catalog_items
		(supplier_id, sku, description, unit, unit_price, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (supplier_id, sku) DO UPDATE SET
		description = EXCLUDED.description, unit = EXCLUDED.unit,
		unit_price = EXCLUDED.unit_price, updated_at = NOW()
	RETURNING id, unit_price::text, updated_at`,
		item.SupplierID, item.SKU, item.Description, item.Unit, item.UnitPrice.String()).
		Scan(&item.ID, &price, &item.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return CatalogItem{}, fmt.Errorf("supplier %d: %w", item.SupplierID, shared.ErrNotFound)
		}
		return CatalogItem{}, err
	}
	if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return CatalogItem{}, err
	}
	return item, nil
}

func (r *repository) CatalogPrice(ctx context.Context, supplierID int64, sku string) (decimal.Decimal, error) {
	var price string
	err := r.pool.QueryRow(ctx, `SELECT unit_price::text FROM supplier_catalog_items
		WHERE supplier_id = $1 AND sku = $2`, supplierID, sku).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, fmt.Errorf("catalog item %s for supplier %d: %w", sku, supplierID, shared.ErrNotFound)
		}
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(price)
}
