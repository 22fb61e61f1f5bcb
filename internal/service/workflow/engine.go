package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/audit"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/notification"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/database"
	"github.com/tempora-hr/timesheet-backend-go/internal/repository/postgresql"
	auditService "github.com/tempora-hr/timesheet-backend-go/internal/service/audit"
)

// Engine is the approval state machine. Every transition is validated
// against the gate and the current status, then applied under an optimistic
// version check together with its audit entry; notifications and cache
// invalidation run after commit, off the critical path.
// CacheInvalidator signals read-side refreshes after a committed transition.
type CacheInvalidator interface {
	Invalidate(transition timesheet.Transition, ownerID string)
}

type Engine struct {
	db   database.TxBeginner
	gate *Gate
	timesheet.TimesheetRepository
	timesheet.ActivityRepository
	recorder    *auditService.Recorder
	dispatcher  notification.Dispatcher
	invalidator CacheInvalidator

	// lockAfter is the retention window between final approval and the
	// scheduled lock.
	lockAfter time.Duration
}

// DecisionFunc is the shared shape of the two approval-tier operations.
type DecisionFunc func(ctx context.Context, actor user.Actor, timesheetID string, decision timesheet.Decision, comment *string) (timesheet.Timesheet, error)

func NewEngine(
	db database.TxBeginner,
	gate *Gate,
	timesheetRepository timesheet.TimesheetRepository,
	activityRepository timesheet.ActivityRepository,
	recorder *auditService.Recorder,
	dispatcher notification.Dispatcher,
	invalidator CacheInvalidator,
	lockAfter time.Duration,
) *Engine {
	return &Engine{
		db:                  db,
		gate:                gate,
		TimesheetRepository: timesheetRepository,
		ActivityRepository:  activityRepository,
		recorder:            recorder,
		dispatcher:          dispatcher,
		invalidator:         invalidator,
		lockAfter:           lockAfter,
	}
}

// Submit moves DRAFT to SUBMITTED and freezes the declared-hours snapshot.
func (e *Engine) Submit(ctx context.Context, actor user.Actor, timesheetID string) (timesheet.Timesheet, error) {
	ts, err := e.TimesheetRepository.GetByID(ctx, timesheetID)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	if err := e.gate.CanTransition(actor.Role, actor.ID, ts.EmployeeID, timesheet.TransitionSubmit); err != nil {
		return timesheet.Timesheet{}, err
	}
	if !timesheet.IsValidTransition(ts.Status, timesheet.StatusSubmitted) {
		return timesheet.Timesheet{}, timesheet.ErrInvalidTransition
	}
	if ts.WeekStart.After(time.Now()) {
		return timesheet.Timesheet{}, timesheet.ErrWeekInFuture
	}

	count, err := e.ActivityRepository.CountByTimesheet(ctx, timesheetID)
	if err != nil {
		return timesheet.Timesheet{}, fmt.Errorf("count activities: %w", err)
	}
	if count == 0 {
		return timesheet.Timesheet{}, timesheet.ErrNoActivities
	}

	total, err := e.ActivityRepository.SumHours(ctx, timesheetID)
	if err != nil {
		return timesheet.Timesheet{}, fmt.Errorf("sum activity hours: %w", err)
	}
	if total <= 0 {
		return timesheet.Timesheet{}, timesheet.ErrZeroTotalHours
	}

	now := time.Now()
	upd := timesheet.StatusUpdate{
		ID:          ts.ID,
		FromVersion: ts.Version,
		Status:      timesheet.StatusSubmitted,
		TotalHours:  &total,
		SubmittedAt: &now,
	}
	diff := audit.Diff{
		"status":      {Old: string(ts.Status), New: string(timesheet.StatusSubmitted)},
		"total_hours": {Old: ts.TotalHours, New: total},
	}

	return e.apply(ctx, &actor, ts, upd, audit.ActionKindSubmit, timesheet.TransitionSubmit, diff, nil)
}

// ManagerApprove records the first-tier decision: SUBMITTED to
// MANAGER_APPROVED on approve, SUBMITTED to REJECTED on reject.
func (e *Engine) ManagerApprove(ctx context.Context, actor user.Actor, timesheetID string, decision timesheet.Decision, comment *string) (timesheet.Timesheet, error) {
	transition := timesheet.TransitionManagerApprove
	if decision == timesheet.DecisionReject {
		transition = timesheet.TransitionManagerReject
	}

	ts, err := e.TimesheetRepository.GetByID(ctx, timesheetID)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	if err := e.gate.CanTransition(actor.Role, actor.ID, ts.EmployeeID, transition); err != nil {
		return timesheet.Timesheet{}, err
	}
	if ts.Status != timesheet.StatusSubmitted {
		return timesheet.Timesheet{}, timesheet.ErrNotPendingManager
	}

	record, err := buildDecision(actor, decision, comment)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	status := timesheet.StatusManagerApproved
	action := audit.ActionKindApprove
	if decision == timesheet.DecisionReject {
		status = timesheet.StatusRejected
		action = audit.ActionKindReject
	}

	upd := timesheet.StatusUpdate{
		ID:              ts.ID,
		FromVersion:     ts.Version,
		Status:          status,
		ManagerApproval: &record,
	}
	diff := audit.Diff{
		"status":           {Old: string(ts.Status), New: string(status)},
		"manager_decision": {Old: priorDecision(ts.ManagerApproval), New: string(decision)},
	}

	return e.apply(ctx, &actor, ts, upd, action, transition, diff, comment)
}

// FinalApprove records the terminal second-tier decision: MANAGER_APPROVED
// to APPROVED on approve, MANAGER_APPROVED to REJECTED on reject.
func (e *Engine) FinalApprove(ctx context.Context, actor user.Actor, timesheetID string, decision timesheet.Decision, comment *string) (timesheet.Timesheet, error) {
	transition := timesheet.TransitionFinalApprove
	if decision == timesheet.DecisionReject {
		transition = timesheet.TransitionFinalReject
	}

	ts, err := e.TimesheetRepository.GetByID(ctx, timesheetID)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	if err := e.gate.CanTransition(actor.Role, actor.ID, ts.EmployeeID, transition); err != nil {
		return timesheet.Timesheet{}, err
	}
	if ts.Status != timesheet.StatusManagerApproved {
		return timesheet.Timesheet{}, timesheet.ErrNotPendingFinal
	}

	record, err := buildDecision(actor, decision, comment)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	status := timesheet.StatusApproved
	action := audit.ActionKindApprove
	if decision == timesheet.DecisionReject {
		status = timesheet.StatusRejected
		action = audit.ActionKindReject
	}

	upd := timesheet.StatusUpdate{
		ID:            ts.ID,
		FromVersion:   ts.Version,
		Status:        status,
		FinalApproval: &record,
	}
	diff := audit.Diff{
		"status":         {Old: string(ts.Status), New: string(status)},
		"final_decision": {Old: priorDecision(ts.FinalApproval), New: string(decision)},
	}

	return e.apply(ctx, &actor, ts, upd, action, transition, diff, comment)
}

// CancelSubmission returns SUBMITTED to DRAFT, only while no approver has
// acted yet; cancelling cannot silently undo another actor's decision.
func (e *Engine) CancelSubmission(ctx context.Context, actor user.Actor, timesheetID string) (timesheet.Timesheet, error) {
	ts, err := e.TimesheetRepository.GetByID(ctx, timesheetID)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	if err := e.gate.CanTransition(actor.Role, actor.ID, ts.EmployeeID, timesheet.TransitionCancel); err != nil {
		return timesheet.Timesheet{}, err
	}
	if ts.Status != timesheet.StatusSubmitted {
		return timesheet.Timesheet{}, timesheet.ErrInvalidTransition
	}
	if ts.ManagerApproval != nil || ts.FinalApproval != nil {
		return timesheet.Timesheet{}, timesheet.ErrCancelAfterDecision
	}

	upd := timesheet.StatusUpdate{
		ID:             ts.ID,
		FromVersion:    ts.Version,
		Status:         timesheet.StatusDraft,
		ClearSubmitted: true,
	}
	diff := audit.Diff{
		"status": {Old: string(ts.Status), New: string(timesheet.StatusDraft)},
	}

	return e.apply(ctx, &actor, ts, upd, audit.ActionKindCancel, timesheet.TransitionCancel, diff, nil)
}

// Lock makes an APPROVED timesheet permanently immutable. System-invoked
// only, and idempotent: locking an already locked timesheet is a no-op.
func (e *Engine) Lock(ctx context.Context, timesheetID string) (timesheet.Timesheet, error) {
	ts, err := e.TimesheetRepository.GetByID(ctx, timesheetID)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	if ts.Status == timesheet.StatusLocked {
		return ts, nil
	}
	if !timesheet.IsValidTransition(ts.Status, timesheet.StatusLocked) {
		return timesheet.Timesheet{}, timesheet.ErrInvalidTransition
	}

	now := time.Now()
	upd := timesheet.StatusUpdate{
		ID:          ts.ID,
		FromVersion: ts.Version,
		Status:      timesheet.StatusLocked,
		LockedAt:    &now,
	}
	diff := audit.Diff{
		"status": {Old: string(ts.Status), New: string(timesheet.StatusLocked)},
	}

	// nil actor: this is a system action.
	return e.apply(ctx, nil, ts, upd, audit.ActionKindLock, timesheet.TransitionLock, diff, nil)
}

// LockDueTimesheets locks every approved timesheet whose retention window
// has elapsed. Called from the scheduler.
func (e *Engine) LockDueTimesheets(ctx context.Context) error {
	cutoff := time.Now().Add(-e.lockAfter)
	candidates, err := e.TimesheetRepository.ListLockCandidates(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list lock candidates: %w", err)
	}

	for _, ts := range candidates {
		if _, err := e.Lock(ctx, ts.ID); err != nil {
			// A concurrent transition on one candidate must not starve the
			// rest of the sweep.
			if errors.Is(err, timesheet.ErrStateConflict) || errors.Is(err, timesheet.ErrInvalidTransition) {
				continue
			}
			return fmt.Errorf("lock timesheet %s: %w", ts.ID, err)
		}
	}
	return nil
}

// RevertStatus is the administrative escape hatch: it returns any non-locked
// timesheet to the target status. The live approval records are cleared;
// their history stays in the audit trail.
func (e *Engine) RevertStatus(ctx context.Context, actor user.Actor, timesheetID string, target timesheet.Status, reason string) (timesheet.Timesheet, error) {
	if reason == "" {
		return timesheet.Timesheet{}, timesheet.ErrReasonRequired
	}

	ts, err := e.TimesheetRepository.GetByID(ctx, timesheetID)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	if err := e.gate.CanTransition(actor.Role, actor.ID, ts.EmployeeID, timesheet.TransitionRevert); err != nil {
		return timesheet.Timesheet{}, err
	}
	if ts.Status == timesheet.StatusLocked {
		return timesheet.Timesheet{}, timesheet.ErrTimesheetLocked
	}
	if !timesheet.IsValidRevert(ts.Status, target) {
		return timesheet.Timesheet{}, timesheet.ErrInvalidRevertTarget
	}

	upd := timesheet.StatusUpdate{
		ID:             ts.ID,
		FromVersion:    ts.Version,
		Status:         target,
		ClearApprovals: true,
		ClearSubmitted: target == timesheet.StatusDraft,
	}

	diff := audit.Diff{
		"status": {Old: string(ts.Status), New: string(target)},
	}
	// Preserve the superseded decisions in the trail before they are
	// cleared from the live record.
	if ts.ManagerApproval != nil {
		diff["manager_decision"] = audit.FieldChange{Old: string(ts.ManagerApproval.Decision), New: nil}
	}
	if ts.FinalApproval != nil {
		diff["final_decision"] = audit.FieldChange{Old: string(ts.FinalApproval.Decision), New: nil}
	}

	return e.apply(ctx, &actor, ts, upd, audit.ActionKindRevert, timesheet.TransitionRevert, diff, &reason)
}

// apply commits the transition and its audit entry atomically, then hands
// the event to the dispatcher and the invalidator. A failed commit produces
// no audit entry, no event and no invalidation.
func (e *Engine) apply(
	ctx context.Context,
	actor *user.Actor,
	ts timesheet.Timesheet,
	upd timesheet.StatusUpdate,
	action audit.ActionKind,
	transition timesheet.Transition,
	diff audit.Diff,
	reason *string,
) (timesheet.Timesheet, error) {
	err := postgresql.WithTransaction(ctx, e.db, func(tx pgx.Tx) error {
		txCtx := context.WithValue(ctx, "tx", tx)

		if err := e.TimesheetRepository.UpdateStatus(txCtx, upd); err != nil {
			return err
		}

		var actorID *string
		if actor != nil {
			actorID = &actor.ID
		}
		return e.recorder.Record(txCtx, actorID, action, audit.EntityTimesheet, ts.ID, diff, reason)
	})
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	event := notification.WorkflowEvent{
		Transition:  transition,
		TimesheetID: ts.ID,
		OwnerID:     ts.EmployeeID,
		Version:     ts.Version + 1,
		EmittedAt:   time.Now(),
	}
	if actor != nil {
		event.ActorID = actor.ID
	}
	e.dispatcher.Dispatch(event)
	e.invalidator.Invalidate(transition, ts.EmployeeID)

	updated, err := e.TimesheetRepository.GetByID(ctx, ts.ID)
	if err != nil {
		return timesheet.Timesheet{}, err
	}
	return updated, nil
}

func buildDecision(actor user.Actor, decision timesheet.Decision, comment *string) (timesheet.ApprovalRecord, error) {
	if decision != timesheet.DecisionApprove && decision != timesheet.DecisionReject {
		return timesheet.ApprovalRecord{}, timesheet.ErrInvalidDecision
	}
	if decision == timesheet.DecisionReject && (comment == nil || *comment == "") {
		return timesheet.ApprovalRecord{}, timesheet.ErrCommentRequired
	}

	return timesheet.ApprovalRecord{
		ActorID:   actor.ID,
		Role:      actor.Role,
		Decision:  decision,
		Comment:   comment,
		DecidedAt: time.Now(),
	}, nil
}

func priorDecision(rec *timesheet.ApprovalRecord) interface{} {
	if rec == nil {
		return nil
	}
	return string(rec.Decision)
}
