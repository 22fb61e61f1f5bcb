package timesheet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/audit"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
	auditService "github.com/tempora-hr/timesheet-backend-go/internal/service/audit"
)

type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(ctx context.Context) error   { return nil }
func (fakeTx) Rollback(ctx context.Context) error { return nil }

type fakeDB struct{}

func (fakeDB) BeginTx(ctx context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

type memTimesheetRepo struct {
	store map[string]timesheet.Timesheet
	next  int
}

func (r *memTimesheetRepo) Create(ctx context.Context, ts timesheet.Timesheet) (timesheet.Timesheet, error) {
	r.next++
	ts.ID = fmt.Sprintf("ts-%d", r.next)
	ts.Version = 1
	r.store[ts.ID] = ts
	return ts, nil
}

func (r *memTimesheetRepo) GetByID(ctx context.Context, id string) (timesheet.Timesheet, error) {
	ts, ok := r.store[id]
	if !ok {
		return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
	}
	return ts, nil
}

func (r *memTimesheetRepo) GetByIDForUpdate(ctx context.Context, id string) (timesheet.Timesheet, error) {
	return r.GetByID(ctx, id)
}

func (r *memTimesheetRepo) GetByEmployeeWeek(ctx context.Context, employeeID string, weekStart time.Time) (timesheet.Timesheet, error) {
	for _, ts := range r.store {
		if ts.EmployeeID == employeeID && ts.WeekStart.Equal(weekStart) {
			return ts, nil
		}
	}
	return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
}

func (r *memTimesheetRepo) ListByEmployee(ctx context.Context, employeeID string) ([]timesheet.Timesheet, error) {
	var out []timesheet.Timesheet
	for _, ts := range r.store {
		if ts.EmployeeID == employeeID {
			out = append(out, ts)
		}
	}
	return out, nil
}

func (r *memTimesheetRepo) ListByStatuses(ctx context.Context, statuses ...timesheet.Status) ([]timesheet.Timesheet, error) {
	var out []timesheet.Timesheet
	for _, ts := range r.store {
		for _, s := range statuses {
			if ts.Status == s {
				out = append(out, ts)
			}
		}
	}
	return out, nil
}

func (r *memTimesheetRepo) ListLockCandidates(ctx context.Context, approvedBefore time.Time) ([]timesheet.Timesheet, error) {
	return nil, nil
}

func (r *memTimesheetRepo) UpdateStatus(ctx context.Context, upd timesheet.StatusUpdate) error {
	ts, ok := r.store[upd.ID]
	if !ok {
		return timesheet.ErrTimesheetNotFound
	}
	if ts.Version != upd.FromVersion {
		return timesheet.ErrStateConflict
	}
	ts.Status = upd.Status
	ts.Version++
	r.store[upd.ID] = ts
	return nil
}

func (r *memTimesheetRepo) UpdateTotalHours(ctx context.Context, id string, total float64) error {
	ts, ok := r.store[id]
	if !ok {
		return timesheet.ErrTimesheetNotFound
	}
	ts.TotalHours = total
	ts.Version++
	r.store[id] = ts
	return nil
}

func (r *memTimesheetRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.store[id]; !ok {
		return timesheet.ErrTimesheetNotFound
	}
	delete(r.store, id)
	return nil
}

type memActivityRepo struct {
	store map[string]timesheet.Activity
	next  int
}

func (r *memActivityRepo) Create(ctx context.Context, a timesheet.Activity) (timesheet.Activity, error) {
	r.next++
	a.ID = fmt.Sprintf("act-%d", r.next)
	r.store[a.ID] = a
	return a, nil
}

func (r *memActivityRepo) GetByID(ctx context.Context, id string) (timesheet.Activity, error) {
	a, ok := r.store[id]
	if !ok {
		return timesheet.Activity{}, timesheet.ErrActivityNotFound
	}
	return a, nil
}

func (r *memActivityRepo) Update(ctx context.Context, a timesheet.Activity) error {
	if _, ok := r.store[a.ID]; !ok {
		return timesheet.ErrActivityNotFound
	}
	r.store[a.ID] = a
	return nil
}

func (r *memActivityRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.store[id]; !ok {
		return timesheet.ErrActivityNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *memActivityRepo) ListByTimesheet(ctx context.Context, timesheetID string) ([]timesheet.Activity, error) {
	var out []timesheet.Activity
	for _, a := range r.store {
		if a.TimesheetID == timesheetID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memActivityRepo) SumHours(ctx context.Context, timesheetID string) (float64, error) {
	var sum float64
	for _, a := range r.store {
		if a.TimesheetID == timesheetID {
			sum += a.Hours
		}
	}
	return sum, nil
}

func (r *memActivityRepo) CountByTimesheet(ctx context.Context, timesheetID string) (int64, error) {
	var n int64
	for _, a := range r.store {
		if a.TimesheetID == timesheetID {
			n++
		}
	}
	return n, nil
}

type memAuditRepo struct {
	entries []audit.Entry
}

func (r *memAuditRepo) Append(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *memAuditRepo) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID string, limit, offset int) ([]audit.Entry, error) {
	return r.entries, nil
}

type ledgerFixture struct {
	ledger     *LedgerService
	sheets     *memTimesheetRepo
	activities *memActivityRepo
	auditLog   *memAuditRepo
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		sheets:     &memTimesheetRepo{store: make(map[string]timesheet.Timesheet)},
		activities: &memActivityRepo{store: make(map[string]timesheet.Activity)},
		auditLog:   &memAuditRepo{},
	}
	f.ledger = NewLedgerService(fakeDB{}, f.sheets, f.activities, auditService.NewRecorder(f.auditLog))
	return f
}

const testWeekStart = "2026-03-02" // a Monday

func (f *ledgerFixture) createDraft(t *testing.T, ownerID string) timesheet.Timesheet {
	t.Helper()
	ts, err := f.ledger.CreateTimesheet(context.Background(), ownerID, timesheet.CreateTimesheetRequest{
		WeekStart: testWeekStart,
	})
	require.NoError(t, err)
	return ts
}

func activityReq(date string, hours float64) timesheet.ActivityRequest {
	return timesheet.ActivityRequest{
		Date:        date,
		Hours:       hours,
		Description: "sprint work",
	}
}

func TestLedger_CreateTimesheet(t *testing.T) {
	f := newLedgerFixture()

	ts := f.createDraft(t, "emp-1")
	assert.Equal(t, timesheet.StatusDraft, ts.Status)
	assert.Equal(t, int64(1), ts.Version)
	assert.Equal(t, "2026-03-08", ts.WeekEnd.Format("2006-01-02"))

	require.Len(t, f.auditLog.entries, 1)
	assert.Equal(t, audit.ActionKindCreate, f.auditLog.entries[0].Action)
}

func TestLedger_CreateTimesheet_DuplicateWeek(t *testing.T) {
	f := newLedgerFixture()
	f.createDraft(t, "emp-1")

	_, err := f.ledger.CreateTimesheet(context.Background(), "emp-1", timesheet.CreateTimesheetRequest{
		WeekStart: testWeekStart,
	})
	assert.ErrorIs(t, err, timesheet.ErrWeekAlreadyExists)
}

func TestLedger_CreateTimesheet_NotMonday(t *testing.T) {
	f := newLedgerFixture()

	_, err := f.ledger.CreateTimesheet(context.Background(), "emp-1", timesheet.CreateTimesheetRequest{
		WeekStart: "2026-03-04",
	})
	assert.ErrorIs(t, err, timesheet.ErrWeekStartNotMonday)
}

func TestLedger_AddActivity(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	got, err := f.ledger.AddActivity(ctx, "emp-1", ts.ID, activityReq("2026-03-03", 7.5))
	require.NoError(t, err)
	assert.Equal(t, 7.5, got.TotalHours)
	require.Len(t, got.Activities, 1)

	got, err = f.ledger.AddActivity(ctx, "emp-1", ts.ID, activityReq("2026-03-04", 8))
	require.NoError(t, err)
	assert.Equal(t, 15.5, got.TotalHours)
	assert.Len(t, got.Activities, 2)

	// Every total write moves the version, so in-flight submits see it.
	assert.Equal(t, int64(3), got.Version)
}

func TestLedger_AddActivity_HoursInvariant(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	_, err := f.ledger.AddActivity(ctx, "emp-1", ts.ID, activityReq("2026-03-03", 7.1))
	assert.ErrorIs(t, err, timesheet.ErrHoursNotQuarterly)

	_, err = f.ledger.AddActivity(ctx, "emp-1", ts.ID, activityReq("2026-03-03", 24.25))
	assert.ErrorIs(t, err, timesheet.ErrHoursOutOfRange)

	_, err = f.ledger.AddActivity(ctx, "emp-1", ts.ID, activityReq("2026-03-03", 0))
	assert.ErrorIs(t, err, timesheet.ErrHoursOutOfRange)
}

func TestLedger_AddActivity_DateOutsideWeek(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	_, err := f.ledger.AddActivity(ctx, "emp-1", ts.ID, activityReq("2026-03-09", 8))
	assert.ErrorIs(t, err, timesheet.ErrDateOutsideWeek)
}

func TestLedger_AddActivity_NotOwner(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	_, err := f.ledger.AddActivity(ctx, "emp-2", ts.ID, activityReq("2026-03-03", 8))
	assert.ErrorIs(t, err, timesheet.ErrNotOwner)
}

func TestLedger_AddActivity_NotDraft(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	stored := f.sheets.store[ts.ID]
	stored.Status = timesheet.StatusSubmitted
	f.sheets.store[ts.ID] = stored

	_, err := f.ledger.AddActivity(ctx, "emp-1", ts.ID, activityReq("2026-03-03", 8))
	assert.ErrorIs(t, err, timesheet.ErrNotDraft)
}

func TestLedger_AddActivity_Locked(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	stored := f.sheets.store[ts.ID]
	stored.Status = timesheet.StatusLocked
	f.sheets.store[ts.ID] = stored

	_, err := f.ledger.AddActivity(ctx, "emp-1", ts.ID, activityReq("2026-03-03", 8))
	assert.ErrorIs(t, err, timesheet.ErrTimesheetLocked)
}

func TestLedger_UpdateActivity(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	got, err := f.ledger.AddActivity(ctx, "emp-1", ts.ID, activityReq("2026-03-03", 7.5))
	require.NoError(t, err)
	activityID := got.Activities[0].ID

	got, err = f.ledger.UpdateActivity(ctx, "emp-1", ts.ID, activityID, activityReq("2026-03-03", 4.25))
	require.NoError(t, err)
	assert.Equal(t, 4.25, got.TotalHours)

	// The update and its total move are audited with a field diff.
	last := f.auditLog.entries[len(f.auditLog.entries)-1]
	assert.Equal(t, audit.ActionKindUpdate, last.Action)
	assert.Contains(t, last.Diff, "hours")
	assert.Contains(t, last.Diff, "total_hours")
}

func TestLedger_UpdateActivity_WrongTimesheet(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts1 := f.createDraft(t, "emp-1")

	ts2, err := f.ledger.CreateTimesheet(ctx, "emp-2", timesheet.CreateTimesheetRequest{WeekStart: testWeekStart})
	require.NoError(t, err)

	got, err := f.ledger.AddActivity(ctx, "emp-2", ts2.ID, activityReq("2026-03-03", 8))
	require.NoError(t, err)
	foreignActivity := got.Activities[0].ID

	_, err = f.ledger.UpdateActivity(ctx, "emp-1", ts1.ID, foreignActivity, activityReq("2026-03-03", 4))
	assert.ErrorIs(t, err, timesheet.ErrActivityNotFound)
}

func TestLedger_DeleteActivity(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	got, err := f.ledger.AddActivity(ctx, "emp-1", ts.ID, activityReq("2026-03-03", 7.5))
	require.NoError(t, err)
	activityID := got.Activities[0].ID

	got, err = f.ledger.DeleteActivity(ctx, "emp-1", ts.ID, activityID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalHours)
	assert.Empty(t, got.Activities)
}

func TestLedger_GetTimesheet_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	_, err := f.ledger.GetTimesheet(ctx, user.Actor{ID: "emp-1", Role: user.RoleEmployee}, ts.ID)
	assert.NoError(t, err)

	_, err = f.ledger.GetTimesheet(ctx, user.Actor{ID: "emp-2", Role: user.RoleEmployee}, ts.ID)
	assert.ErrorIs(t, err, timesheet.ErrNotOwner)

	_, err = f.ledger.GetTimesheet(ctx, user.Actor{ID: "mgr-1", Role: user.RoleManager}, ts.ID)
	assert.NoError(t, err)
}

func TestLedger_ListPendingApprovals(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()

	submitted := f.createDraft(t, "emp-1")
	s := f.sheets.store[submitted.ID]
	s.Status = timesheet.StatusSubmitted
	f.sheets.store[submitted.ID] = s

	escalated, err := f.ledger.CreateTimesheet(ctx, "emp-2", timesheet.CreateTimesheetRequest{WeekStart: testWeekStart})
	require.NoError(t, err)
	e := f.sheets.store[escalated.ID]
	e.Status = timesheet.StatusManagerApproved
	f.sheets.store[escalated.ID] = e

	managerQueue, err := f.ledger.ListPendingApprovals(ctx, user.Actor{ID: "mgr-1", Role: user.RoleManager})
	require.NoError(t, err)
	assert.Len(t, managerQueue, 1)

	directorQueue, err := f.ledger.ListPendingApprovals(ctx, user.Actor{ID: "dir-1", Role: user.RoleDirector})
	require.NoError(t, err)
	assert.Len(t, directorQueue, 2)

	_, err = f.ledger.ListPendingApprovals(ctx, user.Actor{ID: "emp-1", Role: user.RoleEmployee})
	assert.ErrorIs(t, err, timesheet.ErrForbidden)
}

func TestLedger_DeleteTimesheet(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	require.NoError(t, f.ledger.DeleteTimesheet(ctx, "emp-1", ts.ID))
	_, err := f.sheets.GetByID(ctx, ts.ID)
	assert.ErrorIs(t, err, timesheet.ErrTimesheetNotFound)
}

func TestLedger_DeleteTimesheet_NotDraft(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	ts := f.createDraft(t, "emp-1")

	stored := f.sheets.store[ts.ID]
	stored.Status = timesheet.StatusSubmitted
	f.sheets.store[ts.ID] = stored

	err := f.ledger.DeleteTimesheet(ctx, "emp-1", ts.ID)
	assert.ErrorIs(t, err, timesheet.ErrNotDraft)
}
