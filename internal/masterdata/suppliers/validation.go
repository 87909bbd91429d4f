package suppliers

import (
	"strings"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

func (s *Service) validate(sup Supplier) error {
	var errs shared.ValidationErrors
	if strings.TrimSpace(sup.Code) == "" {
		errs = append(errs, shared.FieldError{Field: "code", Message: "required"})
	}
	if strings.TrimSpace(sup.Name) == "" {
		errs = append(errs, shared.FieldError{Field: "name", Message: "required"})
	}
	if strings.TrimSpace(sup.Email) == "" {
		errs = append(errs, shared.FieldError{Field: "email", Message: "required for document dispatch"})
	} else if !strings.Contains(sup.Email, "@") {
		errs = append(errs, shared.FieldError{Field: "email", Message: "must be an email address"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *Service) validateCatalogItem(item CatalogItem) error {
	var errs shared.ValidationErrors
	if strings.TrimSpace(item.SKU) == "" {
		errs = append(errs, shared.FieldError{Field: "sku", Message: "required"})
	}
	if strings.TrimSpace(item.Description) == "" {
		errs = append(errs, shared.FieldError{Field: "description", Message: "required"})
	}
	if strings.TrimSpace(item.Unit) == "" {
		errs = append(errs, shared.FieldError{Field: "unit", Message: "required"})
	}
	if item.UnitPrice.IsNegative() {
		errs = append(errs, shared.FieldError{Field: "unit_price", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
