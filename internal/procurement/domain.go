package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequisitionStatus enumerates the requisition lifecycle.
type RequisitionStatus string

const (
	StatusDraft           RequisitionStatus = "DRAFT"
	StatusPendingApproval RequisitionStatus = "PENDING_APPROVAL"
	StatusApproved        RequisitionStatus = "APPROVED"
	StatusRejected        RequisitionStatus = "REJECTED"
	StatusConverted       RequisitionStatus = "CONVERTED"
	StatusCancelled       RequisitionStatus = "CANCELLED"
)

// POStatus enumerates the purchase order lifecycle. Purchase orders are
// append-only after issue: only the status field progresses.
type POStatus string

const (
	POStatusIssued    POStatus = "ISSUED"
	POStatusFulfilled POStatus = "FULFILLED"
	POStatusCancelled POStatus = "CANCELLED"
)

// transitions is the closed transition table for requisitions. Any pair not
// listed here is rejected with ErrInvalidState; there is no way to leave
// Rejected, Cancelled or Converted.
var transitions = map[RequisitionStatus][]RequisitionStatus{
	StatusDraft:           {StatusPendingApproval, StatusCancelled},
	StatusPendingApproval: {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:        {StatusConverted, StatusCancelled},
	StatusRejected:        nil,
	StatusConverted:       nil,
	StatusCancelled:       nil,
}

func canTransition(from, to RequisitionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition can leave the status.
func (s RequisitionStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether the status is a known lifecycle value.
func (s RequisitionStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Editable reports whether the requisition header and items may still change.
func (s RequisitionStatus) Editable() bool {
	return s == StatusDraft || s == StatusPendingApproval
}

// poTransitions is the closed progression table for purchase orders.
var poTransitions = map[POStatus][]POStatus{
	POStatusIssued:    {POStatusFulfilled, POStatusCancelled},
	POStatusFulfilled: nil,
	POStatusCancelled: nil,
}

func canProgressPO(from, to POStatus) bool {
	for _, next := range poTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Requisition is a requester's draft or submitted request for goods or
// services, tied to a project and supplier. TotalAmount is derived from the
// items and never trusted from input. Version is the optimistic concurrency
// token; every write must carry the version it read.
type Requisition struct {
	ID           int64
	Number       string
	ProjectID    int64
	SupplierID   int64
	RequesterID  int64
	RequestDate  time.Time
	DeliveryDate time.Time
	DeliverTo    string
	Instructions string
	TotalAmount  decimal.Decimal
	Status       RequisitionStatus
	RejectReason string
	CancelReason string
	POID         int64
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RequisitionItem is one ordered line of a requisition. LineTotal is always
// recomputed as quantity x unit price rounded half-up to 2 decimal places.
type RequisitionItem struct {
	ID            int64
	RequisitionID int64
	Description   string
	Quantity      int64
	Unit          string
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
}

// PurchaseOrder is the immutable numbered snapshot produced from an approved
// requisition. Project, supplier and item values are copied at conversion
// time and never track later catalog or requisition changes.
type PurchaseOrder struct {
	ID            int64
	Number        string
	RequisitionID int64
	ProjectID     int64
	SupplierID    int64
	TotalAmount   decimal.Decimal
	Status        POStatus
	CreatedAt     time.Time
}

// PurchaseOrderItem is a frozen copy of a requisition item.
type PurchaseOrderItem struct {
	ID          int64
	POID        int64
	Description string
	Quantity    int64
	Unit        string
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// ListFilters narrows requisition and purchase order listings.
type ListFilters struct {
	Status     string
	ProjectID  int64
	SupplierID int64
	Requester  int64
	Search     string
	Limit      int
	Offset     int
}
