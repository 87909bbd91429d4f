package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/quarry-erp/quarry-erp/internal/dispatch"
	"github.com/quarry-erp/quarry-erp/internal/procurement"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type stubAccess struct {
	ownerID int64
}

func (a *stubAccess) Get(ctx context.Context, actor shared.Actor, id int64) (procurement.Requisition, []procurement.RequisitionItem, error) {
	if id != 7 {
		return procurement.Requisition{}, nil, fmt.Errorf("requisition %d: %w", id, shared.ErrNotFound)
	}
	if !actor.Role.Elevated() && actor.ID != a.ownerID {
		return procurement.Requisition{}, nil, fmt.Errorf("requisition REQ-000007 belongs to another requester: %w", shared.ErrForbidden)
	}
	return procurement.Requisition{ID: id, Number: "REQ-000007", RequesterID: a.ownerID}, nil, nil
}

func (a *stubAccess) GetPurchaseOrder(ctx context.Context, actor shared.Actor, id int64) (procurement.PurchaseOrder, []procurement.PurchaseOrderItem, error) {
	if !actor.Role.Elevated() && actor.ID != a.ownerID {
		return procurement.PurchaseOrder{}, nil, fmt.Errorf("purchase order: %w", shared.ErrForbidden)
	}
	return procurement.PurchaseOrder{ID: id, Number: "PO-000004"}, nil, nil
}

type stubSource struct{}

func (stubSource) RequisitionDocument(ctx context.Context, id int64) (dispatch.Document, error) {
	return dispatch.Document{Subject: "Requisition REQ-000007", HTML: "<html></html>", Filename: "REQ-000007.pdf"}, nil
}

func (stubSource) PurchaseOrderDocument(ctx context.Context, id int64) (dispatch.Document, error) {
	return dispatch.Document{Subject: "Purchase Order PO-000004", HTML: "<html></html>", Filename: "PO-000004.pdf"}, nil
}

type stubPDF struct {
	err error
}

func (r *stubPDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4"), nil
}

func (r *stubPDF) Ping(ctx context.Context) error { return nil }

func newTestRouter(renderer PDFRenderer, actor shared.Actor) http.Handler {
	handler := NewHandler(renderer, stubSource{}, &stubAccess{ownerID: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), actor)))
		})
	})
	r.Route("/report", handler.MountRoutes)
	return r
}

func TestRequisitionPDFServedToOwner(t *testing.T) {
	router := newTestRouter(&stubPDF{}, shared.Actor{ID: 1, Role: shared.RoleRequester})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/requisitions/7.pdf", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	require.Equal(t, "%PDF-1.4", rr.Body.String())
}

func TestRequisitionPDFHiddenFromOtherRequester(t *testing.T) {
	router := newTestRouter(&stubPDF{}, shared.Actor{ID: 2, Role: shared.RoleRequester})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/requisitions/7.pdf", nil))

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestPurchaseOrderPDFHiddenFromOtherRequester(t *testing.T) {
	router := newTestRouter(&stubPDF{}, shared.Actor{ID: 2, Role: shared.RoleRequester})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/purchase-orders/4.pdf", nil))

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequisitionPDFUnknownID(t *testing.T) {
	router := newTestRouter(&stubPDF{}, shared.Actor{ID: 10, Role: shared.RoleFinance})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/requisitions/404.pdf", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRendererFailureAnswersBadGateway(t *testing.T) {
	router := newTestRouter(&stubPDF{err: errors.New("gotenberg down")}, shared.Actor{ID: 1, Role: shared.RoleRequester})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/requisitions/7.pdf", nil))

	require.Equal(t, http.StatusBadGateway, rr.Code)
}
