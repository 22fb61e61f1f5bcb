package timesheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/audit"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/database"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/validator"
	"github.com/tempora-hr/timesheet-backend-go/internal/repository/postgresql"
	auditService "github.com/tempora-hr/timesheet-backend-go/internal/service/audit"
)

// LedgerService owns the day-level activity entries of a timesheet and their
// aggregate totals. Every mutation re-reads the parent status under a row
// lock inside the same transaction as the write: immutability outside DRAFT
// is enforced here, not only at the API surface.
type LedgerService struct {
	db database.TxBeginner
	timesheet.TimesheetRepository
	timesheet.ActivityRepository
	recorder *auditService.Recorder
}

func NewLedgerService(db database.TxBeginner, timesheetRepository timesheet.TimesheetRepository, activityRepository timesheet.ActivityRepository, recorder *auditService.Recorder) *LedgerService {
	return &LedgerService{
		db:                  db,
		TimesheetRepository: timesheetRepository,
		ActivityRepository:  activityRepository,
		recorder:            recorder,
	}
}

func (s *LedgerService) CreateTimesheet(ctx context.Context, ownerID string, req timesheet.CreateTimesheetRequest) (timesheet.Timesheet, error) {
	if err := req.Validate(); err != nil {
		return timesheet.Timesheet{}, err
	}

	weekStart, _ := time.Parse("2006-01-02", req.WeekStart)
	if !validator.IsMonday(weekStart) {
		return timesheet.Timesheet{}, timesheet.ErrWeekStartNotMonday
	}

	ts := timesheet.Timesheet{
		EmployeeID: ownerID,
		WeekStart:  weekStart,
		WeekEnd:    timesheet.WeekEndOf(weekStart),
		Status:     timesheet.StatusDraft,
		TotalHours: 0,
	}

	var created timesheet.Timesheet
	err := postgresql.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		txCtx := context.WithValue(ctx, "tx", tx)

		// One timesheet per owner and week. The unique index is the backstop;
		// the pre-check reports the conflict without aborting the transaction.
		if _, err := s.TimesheetRepository.GetByEmployeeWeek(txCtx, ownerID, weekStart); err == nil {
			return timesheet.ErrWeekAlreadyExists
		} else if !errors.Is(err, timesheet.ErrTimesheetNotFound) {
			return err
		}

		var err error
		created, err = s.TimesheetRepository.Create(txCtx, ts)
		if err != nil {
			return err
		}

		diff := audit.Diff{
			"status":     {Old: nil, New: string(timesheet.StatusDraft)},
			"week_start": {Old: nil, New: req.WeekStart},
		}
		return s.recorder.Record(txCtx, &ownerID, audit.ActionKindCreate, audit.EntityTimesheet, created.ID, diff, nil)
	})
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	return created, nil
}

func (s *LedgerService) GetTimesheet(ctx context.Context, actor user.Actor, id string) (timesheet.Timesheet, error) {
	ts, err := s.TimesheetRepository.GetByID(ctx, id)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	// Owners see their own; the approval tiers see everything.
	if !actor.Role.IsManagerTier() && ts.EmployeeID != actor.ID {
		return timesheet.Timesheet{}, timesheet.ErrNotOwner
	}

	activities, err := s.ActivityRepository.ListByTimesheet(ctx, id)
	if err != nil {
		return timesheet.Timesheet{}, fmt.Errorf("list activities: %w", err)
	}
	ts.Activities = activities
	return ts, nil
}

func (s *LedgerService) ListMyTimesheets(ctx context.Context, ownerID string) ([]timesheet.Timesheet, error) {
	return s.TimesheetRepository.ListByEmployee(ctx, ownerID)
}

// ListPendingApprovals returns the review queue for the actor's tier.
func (s *LedgerService) ListPendingApprovals(ctx context.Context, actor user.Actor) ([]timesheet.Timesheet, error) {
	switch {
	case actor.Role.IsFinalTier():
		return s.TimesheetRepository.ListByStatuses(ctx, timesheet.StatusSubmitted, timesheet.StatusManagerApproved)
	case actor.Role.IsManagerTier():
		return s.TimesheetRepository.ListByStatuses(ctx, timesheet.StatusSubmitted)
	}
	return nil, timesheet.ErrForbidden
}

// DeleteTimesheet removes a draft and its activities. Submitted timesheets
// can only move through workflow transitions.
func (s *LedgerService) DeleteTimesheet(ctx context.Context, actorID, id string) error {
	return postgresql.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		txCtx := context.WithValue(ctx, "tx", tx)

		ts, err := s.TimesheetRepository.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if ts.EmployeeID != actorID {
			return timesheet.ErrNotOwner
		}
		if err := s.requireMutable(&ts); err != nil {
			return err
		}

		if err := s.TimesheetRepository.Delete(txCtx, id); err != nil {
			return err
		}

		diff := audit.Diff{"status": {Old: string(ts.Status), New: nil}}
		return s.recorder.Record(txCtx, &actorID, audit.ActionKindDelete, audit.EntityTimesheet, id, diff, nil)
	})
}

func (s *LedgerService) AddActivity(ctx context.Context, actorID, timesheetID string, req timesheet.ActivityRequest) (timesheet.Timesheet, error) {
	if err := req.Validate(); err != nil {
		return timesheet.Timesheet{}, err
	}
	if err := timesheet.ValidateHours(req.Hours); err != nil {
		return timesheet.Timesheet{}, err
	}

	var result timesheet.Timesheet
	err := postgresql.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		txCtx := context.WithValue(ctx, "tx", tx)

		ts, err := s.guardMutable(txCtx, actorID, timesheetID)
		if err != nil {
			return err
		}

		date := req.ParsedDate()
		if !ts.InWeek(date) {
			return timesheet.ErrDateOutsideWeek
		}

		activity := timesheet.Activity{
			TimesheetID: timesheetID,
			TaskID:      req.TaskID,
			Date:        date,
			Hours:       req.Hours,
			Description: req.Description,
			Category:    req.Category,
		}
		created, err := s.ActivityRepository.Create(txCtx, activity)
		if err != nil {
			return fmt.Errorf("create activity: %w", err)
		}

		total, err := s.RecomputeTotal(txCtx, &ts)
		if err != nil {
			return err
		}

		diff := audit.Diff{
			"date":        {Old: nil, New: req.Date},
			"hours":       {Old: nil, New: req.Hours},
			"description": {Old: nil, New: req.Description},
			"total_hours": {Old: ts.TotalHours, New: total},
		}
		if err := s.recorder.Record(txCtx, &actorID, audit.ActionKindCreate, audit.EntityActivity, created.ID, diff, nil); err != nil {
			return err
		}

		ts.TotalHours = total
		ts.Version++
		result = ts
		return nil
	})
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	return s.withActivities(ctx, result)
}

func (s *LedgerService) UpdateActivity(ctx context.Context, actorID, timesheetID, activityID string, req timesheet.ActivityRequest) (timesheet.Timesheet, error) {
	if err := req.Validate(); err != nil {
		return timesheet.Timesheet{}, err
	}
	if err := timesheet.ValidateHours(req.Hours); err != nil {
		return timesheet.Timesheet{}, err
	}

	var result timesheet.Timesheet
	err := postgresql.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		txCtx := context.WithValue(ctx, "tx", tx)

		ts, err := s.guardMutable(txCtx, actorID, timesheetID)
		if err != nil {
			return err
		}

		existing, err := s.ActivityRepository.GetByID(txCtx, activityID)
		if err != nil {
			return err
		}
		if existing.TimesheetID != timesheetID {
			return timesheet.ErrActivityNotFound
		}

		date := req.ParsedDate()
		if !ts.InWeek(date) {
			return timesheet.ErrDateOutsideWeek
		}

		updated := existing
		updated.TaskID = req.TaskID
		updated.Date = date
		updated.Hours = req.Hours
		updated.Description = req.Description
		updated.Category = req.Category
		if err := s.ActivityRepository.Update(txCtx, updated); err != nil {
			return fmt.Errorf("update activity: %w", err)
		}

		total, err := s.RecomputeTotal(txCtx, &ts)
		if err != nil {
			return err
		}

		diff := activityDiff(existing, updated)
		diff["total_hours"] = audit.FieldChange{Old: ts.TotalHours, New: total}
		if err := s.recorder.Record(txCtx, &actorID, audit.ActionKindUpdate, audit.EntityActivity, activityID, diff, nil); err != nil {
			return err
		}

		ts.TotalHours = total
		ts.Version++
		result = ts
		return nil
	})
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	return s.withActivities(ctx, result)
}

func (s *LedgerService) DeleteActivity(ctx context.Context, actorID, timesheetID, activityID string) (timesheet.Timesheet, error) {
	var result timesheet.Timesheet
	err := postgresql.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		txCtx := context.WithValue(ctx, "tx", tx)

		ts, err := s.guardMutable(txCtx, actorID, timesheetID)
		if err != nil {
			return err
		}

		existing, err := s.ActivityRepository.GetByID(txCtx, activityID)
		if err != nil {
			return err
		}
		if existing.TimesheetID != timesheetID {
			return timesheet.ErrActivityNotFound
		}

		if err := s.ActivityRepository.Delete(txCtx, activityID); err != nil {
			return err
		}

		total, err := s.RecomputeTotal(txCtx, &ts)
		if err != nil {
			return err
		}

		diff := audit.Diff{
			"hours":       {Old: existing.Hours, New: nil},
			"total_hours": {Old: ts.TotalHours, New: total},
		}
		if err := s.recorder.Record(txCtx, &actorID, audit.ActionKindDelete, audit.EntityActivity, activityID, diff, nil); err != nil {
			return err
		}

		ts.TotalHours = total
		ts.Version++
		result = ts
		return nil
	})
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	return s.withActivities(ctx, result)
}

// RecomputeTotal re-derives the aggregate from the activity rows and writes
// it back, bumping the version so a concurrent submit cannot freeze a stale
// snapshot. Divergence from the cached value is a data-integrity fault: it is
// logged, and the recomputed value wins.
func (s *LedgerService) RecomputeTotal(ctx context.Context, ts *timesheet.Timesheet) (float64, error) {
	total, err := s.ActivityRepository.SumHours(ctx, ts.ID)
	if err != nil {
		return 0, fmt.Errorf("sum activity hours: %w", err)
	}

	if err := s.TimesheetRepository.UpdateTotalHours(ctx, ts.ID, total); err != nil {
		return 0, fmt.Errorf("update total hours: %w", err)
	}
	return total, nil
}

// guardMutable locks the parent row and verifies ownership and DRAFT status.
// The lock closes the race where the timesheet is submitted between an
// edit's validation and its write.
func (s *LedgerService) guardMutable(ctx context.Context, actorID, timesheetID string) (timesheet.Timesheet, error) {
	ts, err := s.TimesheetRepository.GetByIDForUpdate(ctx, timesheetID)
	if err != nil {
		return timesheet.Timesheet{}, err
	}
	if ts.EmployeeID != actorID {
		return timesheet.Timesheet{}, timesheet.ErrNotOwner
	}
	if err := s.requireMutable(&ts); err != nil {
		return timesheet.Timesheet{}, err
	}
	return ts, nil
}

func (s *LedgerService) requireMutable(ts *timesheet.Timesheet) error {
	if ts.Status == timesheet.StatusLocked {
		return timesheet.ErrTimesheetLocked
	}
	if !ts.IsMutable() {
		return timesheet.ErrNotDraft
	}
	return nil
}

func (s *LedgerService) withActivities(ctx context.Context, ts timesheet.Timesheet) (timesheet.Timesheet, error) {
	activities, err := s.ActivityRepository.ListByTimesheet(ctx, ts.ID)
	if err != nil {
		return timesheet.Timesheet{}, fmt.Errorf("list activities: %w", err)
	}
	ts.Activities = activities

	// The stored aggregate should already match; anything else means a
	// writer bypassed the ledger.
	var sum float64
	for _, a := range activities {
		sum += a.Hours
	}
	if math.Abs(sum-ts.TotalHours) > 1e-9 {
		slog.Error("Timesheet total diverged from activity sum",
			"timesheet_id", ts.ID, "stored", ts.TotalHours, "recomputed", sum)
		ts.TotalHours = sum
	}
	return ts, nil
}

func activityDiff(before, after timesheet.Activity) audit.Diff {
	diff := audit.Diff{}
	if !before.Date.Equal(after.Date) {
		diff["date"] = audit.FieldChange{Old: before.Date.Format("2006-01-02"), New: after.Date.Format("2006-01-02")}
	}
	if before.Hours != after.Hours {
		diff["hours"] = audit.FieldChange{Old: before.Hours, New: after.Hours}
	}
	if before.Description != after.Description {
		diff["description"] = audit.FieldChange{Old: before.Description, New: after.Description}
	}
	return diff
}
