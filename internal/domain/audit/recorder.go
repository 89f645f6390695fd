package audit

import (
	"context"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/tx"
)

// Recorder writes an event on the connection of the mutation it documents.
// Failures are handled inside the recorder and never reach the caller.
type Recorder interface {
	Record(ctx context.Context, conn tx.Conn, event Event)
}

// NopRecorder discards every event.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, tx.Conn, Event) {}

// Reader loads stored events visible under the current session variables.
type Reader interface {
	ListByOrganization(ctx context.Context, conn tx.Conn, orgID id.ID, limit int) ([]Entry, error)
}
