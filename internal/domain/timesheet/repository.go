package timesheet

import (
	"context"
	"time"
)

// StatusUpdate is an optimistic-concurrency write: it only applies when the
// stored row still carries FromVersion, and bumps the version in the same
// statement. Approval fields travel with the status so both land atomically.
type StatusUpdate struct {
	ID          string
	FromVersion int64
	Status      Status

	TotalHours      *float64
	SubmittedAt     *time.Time
	ManagerApproval *ApprovalRecord
	FinalApproval   *ApprovalRecord
	LockedAt        *time.Time

	// ClearApprovals wipes the live approval records (revert / cancel);
	// superseded decisions remain in the audit trail.
	ClearApprovals bool
	ClearSubmitted bool
}

type TimesheetRepository interface {
	Create(ctx context.Context, ts Timesheet) (Timesheet, error)
	GetByID(ctx context.Context, id string) (Timesheet, error)
	// GetByIDForUpdate reads the row under a row lock; callers must run it
	// inside a transaction.
	GetByIDForUpdate(ctx context.Context, id string) (Timesheet, error)
	GetByEmployeeWeek(ctx context.Context, employeeID string, weekStart time.Time) (Timesheet, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]Timesheet, error)
	ListByStatuses(ctx context.Context, statuses ...Status) ([]Timesheet, error)
	// ListLockCandidates returns approved timesheets whose final approval is
	// older than the cutoff.
	ListLockCandidates(ctx context.Context, approvedBefore time.Time) ([]Timesheet, error)
	UpdateStatus(ctx context.Context, upd StatusUpdate) error
	// UpdateTotalHours writes the recomputed aggregate and bumps the version,
	// so an in-flight submit cannot freeze a snapshot that misses the change.
	UpdateTotalHours(ctx context.Context, id string, total float64) error
	Delete(ctx context.Context, id string) error
}

type ActivityRepository interface {
	Create(ctx context.Context, activity Activity) (Activity, error)
	GetByID(ctx context.Context, id string) (Activity, error)
	Update(ctx context.Context, activity Activity) error
	Delete(ctx context.Context, id string) error
	ListByTimesheet(ctx context.Context, timesheetID string) ([]Activity, error)
	SumHours(ctx context.Context, timesheetID string) (float64, error)
	CountByTimesheet(ctx context.Context, timesheetID string) (int64, error)
}
