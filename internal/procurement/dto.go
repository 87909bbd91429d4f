package procurement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type headerPayload struct {
	ProjectID    int64  `json:"project_id" validate:"required,gt=0"`
	SupplierID   int64  `json:"supplier_id" validate:"required,gt=0"`
	DeliveryDate string `json:"delivery_date" validate:"required"`
	DeliverTo    string `json:"deliver_to" validate:"required"`
	Instructions string `json:"instructions"`
}

type itemPayload struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Unit        string `json:"unit"`
	SKU         string `json:"sku,omitempty"`
	UnitPrice   string `json:"unit_price,omitempty"`
}

type editPayload struct {
	headerPayload
	Items []itemPayload `json:"items"`
}

type reasonPayload struct {
	Reason string `json:"reason" validate:"required"`
}

func (p headerPayload) toHeader() (HeaderInput, error) {
	deliveryDate, err := time.Parse("2006-01-02", p.DeliveryDate)
	if err != nil {
		return HeaderInput{}, shared.ValidationErrors{{Field: "delivery_date", Message: "must be YYYY-MM-DD"}}
	}
	return HeaderInput{
		ProjectID:    p.ProjectID,
		SupplierID:   p.SupplierID,
		DeliveryDate: deliveryDate,
		DeliverTo:    p.DeliverTo,
		Instructions: p.Instructions,
	}, nil
}

func toItemInputs(payloads []itemPayload) ([]ItemInput, error) {
	items := make([]ItemInput, 0, len(payloads))
	for i, p := range payloads {
		price := decimal.Zero
		if p.UnitPrice != "" {
			parsed, err := decimal.NewFromString(p.UnitPrice)
			if err != nil {
				return nil, shared.ValidationErrors{{Field: itemField(i, "unit_price"), Message: "must be a decimal number"}}
			}
			price = parsed
		}
		items = append(items, ItemInput{
			Description: p.Description,
			Quantity:    p.Quantity,
			Unit:        p.Unit,
			SKU:         p.SKU,
			UnitPrice:   price,
		})
	}
	return items, nil
}

type itemResponse struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Unit        string `json:"unit"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type requisitionResponse struct {
	ID           int64          `json:"id"`
	Number       string         `json:"number"`
	ProjectID    int64          `json:"project_id"`
	SupplierID   int64          `json:"supplier_id"`
	RequesterID  int64          `json:"requester_id"`
	RequestDate  time.Time      `json:"request_date"`
	DeliveryDate time.Time      `json:"delivery_date"`
	DeliverTo    string         `json:"deliver_to"`
	Instructions string         `json:"instructions,omitempty"`
	TotalAmount  string         `json:"total_amount"`
	Status       string         `json:"status"`
	RejectReason string         `json:"reject_reason,omitempty"`
	CancelReason string         `json:"cancel_reason,omitempty"`
	POID         int64          `json:"po_id,omitempty"`
	Version      int64          `json:"version"`
	Items        []itemResponse `json:"items,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func toRequisitionResponse(req Requisition, items []RequisitionItem) requisitionResponse {
	resp := requisitionResponse{
		ID:           req.ID,
		Number:       req.Number,
		ProjectID:    req.ProjectID,
		SupplierID:   req.SupplierID,
		RequesterID:  req.RequesterID,
		RequestDate:  req.RequestDate,
		DeliveryDate: req.DeliveryDate,
		DeliverTo:    req.DeliverTo,
		Instructions: req.Instructions,
		TotalAmount:  req.TotalAmount.StringFixed(2),
		Status:       string(req.Status),
		RejectReason: req.RejectReason,
		CancelReason: req.CancelReason,
		POID:         req.POID,
		Version:      req.Version,
		CreatedAt:    req.CreatedAt,
		UpdatedAt:    req.UpdatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, itemResponse{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			LineTotal:   it.LineTotal.StringFixed(2),
		})
	}
	return resp
}

type poResponse struct {
	ID            int64          `json:"id"`
	Number        string         `json:"number"`
	RequisitionID int64          `json:"requisition_id"`
	ProjectID     int64          `json:"project_id"`
	SupplierID    int64          `json:"supplier_id"`
	TotalAmount   string         `json:"total_amount"`
	Status        string         `json:"status"`
	Items         []itemResponse `json:"items,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func toPOResponse(po PurchaseOrder, items []PurchaseOrderItem) poResponse {
	resp := poResponse{
		ID:            po.ID,
		Number:        po.Number,
		RequisitionID: po.RequisitionID,
		ProjectID:     po.ProjectID,
		SupplierID:    po.SupplierID,
		TotalAmount:   po.TotalAmount.StringFixed(2),
		Status:        string(po.Status),
		CreatedAt:     po.CreatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, itemResponse{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			LineTotal:   it.LineTotal.StringFixed(2),
		})
	}
	return resp
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
