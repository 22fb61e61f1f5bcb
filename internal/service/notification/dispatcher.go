package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/notification"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/sse"
)

// Config holds dispatcher tuning
type Config struct {
	WorkerCount int // default: 2
	QueueSize   int // default: 1000
}

// Dispatcher emits one WorkflowEvent per completed transition, off the
// caller's critical path. Emission is at-least-once; consumers dedupe on
// (timesheet_id, transition, version).
type Dispatcher struct {
	users     user.UserRepository
	publisher notification.Publisher
	hub       *sse.Hub
	config    Config

	queue chan notification.WorkflowEvent
	wg    sync.WaitGroup
	once  sync.Once
}

func NewDispatcher(users user.UserRepository, publisher notification.Publisher, hub *sse.Hub, cfg Config) *Dispatcher {
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}

	d := &Dispatcher{
		users:     users,
		publisher: publisher,
		hub:       hub,
		config:    cfg,
		queue:     make(chan notification.WorkflowEvent, cfg.QueueSize),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	slog.Info("Notification dispatcher started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize)
	return d
}

// Dispatch enqueues an event. It never blocks the caller; a full queue drops
// the event with an operational log so the gap is detectable.
func (d *Dispatcher) Dispatch(event notification.WorkflowEvent) {
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now()
	}
	select {
	case d.queue <- event:
	default:
		slog.Error("Notification queue full, event dropped",
			"timesheet_id", event.TimesheetID, "transition", event.Transition)
	}
}

// Stop drains the queue and stops the workers.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
	slog.Info("Notification dispatcher stopped")
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		d.emit(ctx, event)
		cancel()
	}
	slog.Debug("Notification worker drained", "worker", id)
}

func (d *Dispatcher) emit(ctx context.Context, event notification.WorkflowEvent) {
	recipients, err := d.RecipientsFor(ctx, event)
	if err != nil {
		slog.Error("Failed to compute recipients", "timesheet_id", event.TimesheetID,
			"transition", event.Transition, "error", err)
		// Publish anyway; external consumers may resolve recipients themselves.
	}
	event.Recipients = recipients

	if err := d.publisher.Publish(ctx, event); err != nil {
		slog.Error("Failed to publish workflow event", "timesheet_id", event.TimesheetID,
			"transition", event.Transition, "error", err)
	}

	d.hub.PublishToMany(recipients, sse.Event{
		Event: "workflow",
		Data:  event,
	})
}

// RecipientsFor derives who should hear about a transition. The set is
// computed, never stored.
func (d *Dispatcher) RecipientsFor(ctx context.Context, event notification.WorkflowEvent) ([]string, error) {
	switch event.Transition {
	case timesheet.TransitionSubmit, timesheet.TransitionCancel:
		manager, err := d.users.GetManagerOf(ctx, event.OwnerID)
		if err != nil {
			// No direct manager: the final tier picks it up.
			return d.listRoleIDs(ctx, user.RoleDirector, user.RoleAdmin)
		}
		return []string{manager.ID}, nil

	case timesheet.TransitionManagerApprove:
		return d.listRoleIDs(ctx, user.RoleDirector, user.RoleAdmin)

	case timesheet.TransitionManagerReject, timesheet.TransitionFinalReject,
		timesheet.TransitionRevert:
		return []string{event.OwnerID}, nil

	case timesheet.TransitionFinalApprove:
		recipients := []string{event.OwnerID}
		if manager, err := d.users.GetManagerOf(ctx, event.OwnerID); err == nil {
			recipients = append(recipients, manager.ID)
		}
		return recipients, nil

	case timesheet.TransitionLock:
		// System transition, nobody to notify; the event still reaches the
		// bus for downstream archival consumers.
		return nil, nil
	}
	return nil, nil
}

func (d *Dispatcher) listRoleIDs(ctx context.Context, roles ...user.Role) ([]string, error) {
	users, err := d.users.ListByRoles(ctx, roles...)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
