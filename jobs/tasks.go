package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeDispatchDocument delivers a rendered procurement document to the
	// parties a lifecycle event concerns.
	TaskTypeDispatchDocument = "dispatch:document"
)

// DispatchDocumentPayload identifies the documents a dispatch run must load.
// Only ids travel on the queue; the worker re-reads current rows so a retry
// after a crash never works from stale data.
type DispatchDocumentPayload struct {
	Kind          string `json:"kind"`
	RequisitionID int64  `json:"requisition_id"`
	POID          int64  `json:"po_id,omitempty"`
	ActorID       int64  `json:"actor_id"`
}

// NewDispatchDocumentTask constructs an Asynq task.
func NewDispatchDocumentTask(payload DispatchDocumentPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDispatchDocument, data), nil
}
