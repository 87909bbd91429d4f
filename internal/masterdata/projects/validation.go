package projects

import (
	"strings"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

func (s *Service) validate(p Project) error {
	var errs shared.ValidationErrors
	if strings.TrimSpace(p.Code) == "" {
		errs = append(errs, shared.FieldError{Field: "code", Message: "required"})
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, shared.FieldError{Field: "name", Message: "required"})
	}
	if p.StartDate.IsZero() {
		errs = append(errs, shared.FieldError{Field: "start_date", Message: "required"})
	}
	if !p.Status.Valid() {
		errs = append(errs, shared.FieldError{Field: "status", Message: "must be one of active, in_progress, completed, on_hold"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
