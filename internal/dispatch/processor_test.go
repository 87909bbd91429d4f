package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/quarry-erp/quarry-erp/internal/shared"
	"github.com/quarry-erp/quarry-erp/jobs"
)

type stubDirectory struct {
	financeEmails []string
	userEmails    map[int64]string
	supplierEmail string
}

func (d *stubDirectory) EmailsByRole(ctx context.Context, role shared.Role) ([]string, error) {
	return d.financeEmails, nil
}

func (d *stubDirectory) EmailByID(ctx context.Context, userID int64) (string, error) {
	email, ok := d.userEmails[userID]
	if !ok {
		return "", errors.New("unknown user")
	}
	return email, nil
}

func (d *stubDirectory) SupplierEmail(ctx context.Context, supplierID int64) (string, error) {
	return d.supplierEmail, nil
}

type stubRenderer struct {
	err error
}

func (r *stubRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4"), nil
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (n *captureNotifier) Send(ctx context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func dispatchTask(t *testing.T, payload jobs.DispatchDocumentPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(jobs.TaskTypeDispatchDocument, data)
}

func newTestProcessor(store DocumentStore, dir Directory, renderer Renderer, notifier Notifier) *Processor {
	return NewProcessor(store, dir, renderer, notifier, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestProcessorDispatchesSubmittedRequisitionToFinance(t *testing.T) {
	notifier := &captureNotifier{}
	dir := &stubDirectory{financeEmails: []string{"fin-a@quarry.test", "fin-b@quarry.test"}}
	proc := newTestProcessor(fixtureStore(), dir, &stubRenderer{}, notifier)

	err := proc.HandleTask(context.Background(), dispatchTask(t, jobs.DispatchDocumentPayload{
		Kind:          "requisition.submitted",
		RequisitionID: 7,
	}))
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	require.Equal(t, dir.financeEmails, notifier.sent[0].To)
	require.Equal(t, "Requisition REQ-000007 (PENDING_APPROVAL)", notifier.sent[0].Subject)
	require.Equal(t, []byte("%PDF-1.4"), notifier.sent[0].Attachment)
}

func TestProcessorNotifiesRequesterOnDecision(t *testing.T) {
	notifier := &captureNotifier{}
	dir := &stubDirectory{userEmails: map[int64]string{3: "requester@quarry.test"}}
	proc := newTestProcessor(fixtureStore(), dir, &stubRenderer{}, notifier)

	err := proc.HandleTask(context.Background(), dispatchTask(t, jobs.DispatchDocumentPayload{
		Kind:          "requisition.approved",
		RequisitionID: 7,
	}))
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	require.Equal(t, []string{"requester@quarry.test"}, notifier.sent[0].To)
}

func TestProcessorSendsPurchaseOrderToSupplier(t *testing.T) {
	notifier := &captureNotifier{}
	dir := &stubDirectory{supplierEmail: "orders@supplier.test"}
	proc := newTestProcessor(fixtureStore(), dir, &stubRenderer{}, notifier)

	err := proc.HandleTask(context.Background(), dispatchTask(t, jobs.DispatchDocumentPayload{
		Kind:          "purchase_order.issued",
		RequisitionID: 7,
		POID:          21,
	}))
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	require.Equal(t, []string{"orders@supplier.test"}, notifier.sent[0].To)
	require.Equal(t, "PO-000004.pdf", notifier.sent[0].Filename)
}

func TestProcessorRetriesOnNotifierFailure(t *testing.T) {
	notifier := &captureNotifier{err: errors.New("relay refused")}
	dir := &stubDirectory{financeEmails: []string{"fin@quarry.test"}}
	proc := newTestProcessor(fixtureStore(), dir, &stubRenderer{}, notifier)

	err := proc.HandleTask(context.Background(), dispatchTask(t, jobs.DispatchDocumentPayload{
		Kind:          "requisition.submitted",
		RequisitionID: 7,
	}))
	require.Error(t, err)
	require.ErrorIs(t, err, shared.ErrDispatch)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessorDropsMalformedPayload(t *testing.T) {
	proc := newTestProcessor(fixtureStore(), &stubDirectory{}, &stubRenderer{}, &captureNotifier{})

	err := proc.HandleTask(context.Background(), asynq.NewTask(jobs.TaskTypeDispatchDocument, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessorDropsUnknownKind(t *testing.T) {
	proc := newTestProcessor(fixtureStore(), &stubDirectory{}, &stubRenderer{}, &captureNotifier{})

	err := proc.HandleTask(context.Background(), dispatchTask(t, jobs.DispatchDocumentPayload{
		Kind:          "requisition.archived",
		RequisitionID: 7,
	}))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessorDropsWhenNoRecipients(t *testing.T) {
	notifier := &captureNotifier{}
	proc := newTestProcessor(fixtureStore(), &stubDirectory{}, &stubRenderer{}, notifier)

	err := proc.HandleTask(context.Background(), dispatchTask(t, jobs.DispatchDocumentPayload{
		Kind:          "requisition.submitted",
		RequisitionID: 7,
	}))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, notifier.sent)
}
