package suppliers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier represents a supplier entity.
type Supplier struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CatalogItem is one priced entry in a supplier's catalog. Requisition items
// that name a SKU without a price pick up the current catalog price; prices
// already copied onto issued purchase orders never change.
type CatalogItem struct {
	ID          int64           `json:"id"`
	SupplierID  int64           `json:"supplier_id"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
