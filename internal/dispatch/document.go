// Package dispatch turns committed procurement lifecycle events into rendered
// documents delivered to the people they concern. Publishing is fire and
// forget: the triggering request only pays for a queue enqueue, and delivery
// retries happen on the worker.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quarry-erp/quarry-erp/internal/procurement"
)

// DocumentStore reads current document rows for rendering. The worker always
// re-reads by id so a retried delivery reflects the committed state, never a
// stale queue payload.
type DocumentStore interface {
	GetRequisition(ctx context.Context, id int64) (procurement.Requisition, []procurement.RequisitionItem, error)
	GetPurchaseOrder(ctx context.Context, id int64) (procurement.PurchaseOrder, []procurement.PurchaseOrderItem, error)
}

// Document is a rendered dispatchable artefact.
type Document struct {
	Subject  string
	HTML     string
	Filename string
}

type documentLine struct {
	Description string
	Quantity    int64
	Unit        string
	UnitPrice   string
	LineTotal   string
}

type documentModel struct {
	Title       string
	Number      string
	Status      string
	IssuedAt    string
	DeliverTo   string
	DeliveryDue string
	Reason      string
	Lines       []documentLine
	Total       string
}

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}} {{.Number}}</title></head>
<body>
<h1>{{.Title}} {{.Number}}</h1>
<p>Status: {{.Status}}{{if .IssuedAt}} &middot; Issued {{.IssuedAt}}{{end}}</p>
{{if .DeliverTo}}<p>Deliver to: {{.DeliverTo}}{{if .DeliveryDue}} by {{.DeliveryDue}}{{end}}</p>{{end}}
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
<table border="1" cellspacing="0" cellpadding="6">
<tr><th>Description</th><th>Qty</th><th>Unit</th><th>Unit price</th><th>Line total</th></tr>
{{range .Lines}}<tr><td>{{.Description}}</td><td>{{.Quantity}}</td><td>{{.Unit}}</td><td>{{.UnitPrice}}</td><td>{{.LineTotal}}</td></tr>
{{end}}<tr><td colspan="4"><strong>Total</strong></td><td><strong>{{.Total}}</strong></td></tr>
</table>
</body>
</html>
`))

// Builder renders procurement documents to HTML.
type Builder struct {
	store   DocumentStore
	printer *message.Printer
}

// NewBuilder constructs a document builder.
func NewBuilder(store DocumentStore) *Builder {
	return &Builder{store: store, printer: message.NewPrinter(language.English)}
}

// RequisitionDocument renders the requisition identified by id.
func (b *Builder) RequisitionDocument(ctx context.Context, id int64) (Document, error) {
	req, items, err := b.store.GetRequisition(ctx, id)
	if err != nil {
		return Document{}, err
	}
	model := documentModel{
		Title:       "Purchase Requisition",
		Number:      req.Number,
		Status:      string(req.Status),
		DeliverTo:   req.DeliverTo,
		DeliveryDue: req.DeliveryDate.Format("2 Jan 2006"),
		Total:       b.amount(req.TotalAmount),
	}
	switch req.Status {
	case procurement.StatusRejected:
		model.Reason = req.RejectReason
	case procurement.StatusCancelled:
		model.Reason = req.CancelReason
	}
	for _, it := range items {
		model.Lines = append(model.Lines, documentLine{
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   b.amount(it.UnitPrice),
			LineTotal:   b.amount(it.LineTotal),
		})
	}
	html, err := renderDocument(model)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Subject:  fmt.Sprintf("Requisition %s (%s)", req.Number, req.Status),
		HTML:     html,
		Filename: req.Number + ".pdf",
	}, nil
}

// PurchaseOrderDocument renders the purchase order identified by id.
func (b *Builder) PurchaseOrderDocument(ctx context.Context, id int64) (Document, error) {
	po, items, err := b.store.GetPurchaseOrder(ctx, id)
	if err != nil {
		return Document{}, err
	}
	model := documentModel{
		Title:    "Purchase Order",
		Number:   po.Number,
		Status:   string(po.Status),
		IssuedAt: po.CreatedAt.Format("2 Jan 2006"),
		Total:    b.amount(po.TotalAmount),
	}
	if po.CreatedAt.IsZero() {
		model.IssuedAt = time.Now().Format("2 Jan 2006")
	}
	for _, it := range items {
		model.Lines = append(model.Lines, documentLine{
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   b.amount(it.UnitPrice),
			LineTotal:   b.amount(it.LineTotal),
		})
	}
	html, err := renderDocument(model)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Subject:  fmt.Sprintf("Purchase Order %s", po.Number),
		HTML:     html,
		Filename: po.Number + ".pdf",
	}, nil
}

// amount formats a monetary value with thousands separators and two decimals.
func (b *Builder) amount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return b.printer.Sprintf("%.2f", f)
}

func renderDocument(model documentModel) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, model); err != nil {
		return "", err
	}
	return buf.String(), nil
}
