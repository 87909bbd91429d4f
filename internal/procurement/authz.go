package procurement

import (
	"fmt"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// Authorization gate in front of the state machine. Role checks run before
// any requisition row is read or written, so an authorization failure never
// mutates state or advances a version.

type action string

const (
	actionCreate  action = "create"
	actionEdit    action = "edit"
	actionSubmit  action = "submit"
	actionApprove action = "approve"
	actionReject  action = "reject"
	actionCancel  action = "cancel"
	actionConvert action = "convert"
	actionPO      action = "manage purchase order"
)

var roleMatrix = map[action]map[shared.Role]bool{
	actionCreate:  {shared.RoleRequester: true, shared.RoleFinance: true, shared.RoleAdmin: true},
	actionEdit:    {shared.RoleRequester: true, shared.RoleFinance: true, shared.RoleAdmin: true},
	actionSubmit:  {shared.RoleRequester: true, shared.RoleFinance: true, shared.RoleAdmin: true},
	actionApprove: {shared.RoleFinance: true, shared.RoleAdmin: true},
	actionReject:  {shared.RoleFinance: true, shared.RoleAdmin: true},
	actionCancel:  {shared.RoleRequester: true, shared.RoleFinance: true, shared.RoleAdmin: true},
	actionConvert: {shared.RoleFinance: true, shared.RoleAdmin: true},
	actionPO:      {shared.RoleFinance: true, shared.RoleAdmin: true},
}

func authorize(actor shared.Actor, act action) error {
	if !actor.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", shared.ErrForbidden, actor.Role)
	}
	if roleMatrix[act][actor.Role] {
		return nil
	}
	return fmt.Errorf("%w: role %s may not %s", shared.ErrForbidden, actor.Role, act)
}

// ensureOwner restricts requesters to their own requisitions. Finance and
// admin act on any requisition.
func ensureOwner(actor shared.Actor, req Requisition) error {
	if actor.Role.Elevated() {
		return nil
	}
	if req.RequesterID != actor.ID {
		return fmt.Errorf("%w: requisition %s belongs to another requester", shared.ErrForbidden, req.Number)
	}
	return nil
}

// ensureCancellable applies the cancel row of the role matrix: requesters may
// cancel their own requisitions only before approval; finance/admin may
// cancel any requisition that is not yet converted.
func ensureCancellable(actor shared.Actor, req Requisition) error {
	if actor.Role.Elevated() {
		return nil
	}
	if err := ensureOwner(actor, req); err != nil {
		return err
	}
	if req.Status == StatusApproved {
		return fmt.Errorf("%w: only finance or admin may cancel an approved requisition", shared.ErrForbidden)
	}
	return nil
}
