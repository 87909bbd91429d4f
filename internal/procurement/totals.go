package procurement

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// ItemInput is the raw item payload accepted by every mutation path.
type ItemInput struct {
	Description string
	Quantity    int64
	Unit        string
	// SKU optionally references a supplier catalog entry. When set and
	// UnitPrice is zero, the live catalog price is used.
	SKU       string
	UnitPrice decimal.Decimal
}

// ValidateItems checks item-level invariants and collects every violation so
// the caller can fix them in one round trip.
func ValidateItems(items []ItemInput) error {
	var errs shared.ValidationErrors
	for i, it := range items {
		if strings.TrimSpace(it.Description) == "" {
			errs = append(errs, shared.FieldError{Field: itemField(i, "description"), Message: "must not be empty"})
		}
		if strings.TrimSpace(it.Unit) == "" {
			errs = append(errs, shared.FieldError{Field: itemField(i, "unit"), Message: "must not be empty"})
		}
		if it.Quantity <= 0 {
			errs = append(errs, shared.FieldError{Field: itemField(i, "quantity"), Message: "must be greater than zero"})
		}
		if it.UnitPrice.IsNegative() {
			errs = append(errs, shared.FieldError{Field: itemField(i, "unit_price"), Message: "must not be negative"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// LineTotal computes quantity x unit price, rounded half-up to 2 decimal
// places. decimal.Round rounds half away from zero, which for non-negative
// money equals round-half-up.
func LineTotal(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity)).Round(2)
}

// ComputeTotal sums the rounded line totals. Lines are rounded before
// summing, not only the grand total, so the result matches the line-by-line
// document display.
func ComputeTotal(items []ItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(LineTotal(it.Quantity, it.UnitPrice))
	}
	return total
}

// itemsTotal recomputes the document total from persisted items.
func itemsTotal(items []RequisitionItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(LineTotal(it.Quantity, it.UnitPrice))
	}
	return total
}

func itemField(index int, name string) string {
	return fmt.Sprintf("items[%d].%s", index, name)
}
