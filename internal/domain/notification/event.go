package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
)

// WorkflowEvent is the transient record of a completed transition, consumed
// by the asynchronous delivery channel. It is not persisted here.
type WorkflowEvent struct {
	Transition  timesheet.Transition `json:"transition"`
	TimesheetID string               `json:"timesheet_id"`
	ActorID     string               `json:"actor_id"`
	OwnerID     string               `json:"owner_id"`
	Version     int64                `json:"version"`
	Recipients  []string             `json:"recipients"`
	EmittedAt   time.Time            `json:"emitted_at"`
}

// DedupeKey identifies an emission; consumers dedupe on it since delivery is
// at-least-once.
func (e WorkflowEvent) DedupeKey() string {
	return fmt.Sprintf("%s:%s:%d", e.TimesheetID, e.Transition, e.Version)
}

// Publisher is the outbound channel for workflow events.
type Publisher interface {
	Publish(ctx context.Context, event WorkflowEvent) error
}

// Dispatcher accepts completed transitions off the critical path.
type Dispatcher interface {
	Dispatch(event WorkflowEvent)
	Stop()
}
