package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/database"
)

type timesheetRepositoryImpl struct {
	db *database.DB
}

func NewTimesheetRepository(db *database.DB) timesheet.TimesheetRepository {
	return &timesheetRepositoryImpl{db: db}
}

const timesheetColumns = `
	t.id, t.employee_id, t.week_start, t.week_end, t.status, t.total_hours, t.version,
	t.submitted_at,
	t.manager_actor_id, t.manager_role, t.manager_decision, t.manager_comment, t.manager_decided_at,
	t.final_actor_id, t.final_role, t.final_decision, t.final_comment, t.final_decided_at,
	t.locked_at, t.created_at, t.updated_at`

func scanTimesheet(row pgx.Row) (timesheet.Timesheet, error) {
	var ts timesheet.Timesheet
	var (
		mgrActor, mgrRole, mgrDecision, mgrComment     *string
		finActor, finRole, finDecision, finComment     *string
		mgrDecidedAt, finDecidedAt                     *time.Time
	)

	err := row.Scan(
		&ts.ID, &ts.EmployeeID, &ts.WeekStart, &ts.WeekEnd, &ts.Status, &ts.TotalHours, &ts.Version,
		&ts.SubmittedAt,
		&mgrActor, &mgrRole, &mgrDecision, &mgrComment, &mgrDecidedAt,
		&finActor, &finRole, &finDecision, &finComment, &finDecidedAt,
		&ts.LockedAt, &ts.CreatedAt, &ts.UpdatedAt,
	)
	if err != nil {
		return timesheet.Timesheet{}, err
	}

	if mgrActor != nil {
		ts.ManagerApproval = &timesheet.ApprovalRecord{
			ActorID:   *mgrActor,
			Role:      user.Role(*mgrRole),
			Decision:  timesheet.Decision(*mgrDecision),
			Comment:   mgrComment,
			DecidedAt: *mgrDecidedAt,
		}
	}
	if finActor != nil {
		ts.FinalApproval = &timesheet.ApprovalRecord{
			ActorID:   *finActor,
			Role:      user.Role(*finRole),
			Decision:  timesheet.Decision(*finDecision),
			Comment:   finComment,
			DecidedAt: *finDecidedAt,
		}
	}

	return ts, nil
}

func (r *timesheetRepositoryImpl) Create(ctx context.Context, ts timesheet.Timesheet) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO timesheets (
			id, employee_id, week_start, week_end, status, total_hours, version,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, 1,
			NOW(), NOW()
		) RETURNING id, version, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		uuid.NewString(), ts.EmployeeID, ts.WeekStart, ts.WeekEnd, ts.Status, ts.TotalHours,
	).Scan(&ts.ID, &ts.Version, &ts.CreatedAt, &ts.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return timesheet.Timesheet{}, timesheet.ErrWeekAlreadyExists
		}
		return timesheet.Timesheet{}, err
	}

	return ts, nil
}

func (r *timesheetRepositoryImpl) GetByID(ctx context.Context, id string) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timesheetColumns + ` FROM timesheets t WHERE t.id = $1`

	ts, err := scanTimesheet(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
		}
		return timesheet.Timesheet{}, err
	}
	return ts, nil
}

// GetByIDForUpdate takes a row lock so the parent status cannot change
// between the check and the dependent write. Only meaningful inside a
// transaction.
func (r *timesheetRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timesheetColumns + ` FROM timesheets t WHERE t.id = $1 FOR UPDATE OF t`

	ts, err := scanTimesheet(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
		}
		return timesheet.Timesheet{}, err
	}
	return ts, nil
}

func (r *timesheetRepositoryImpl) GetByEmployeeWeek(ctx context.Context, employeeID string, weekStart time.Time) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timesheetColumns + ` FROM timesheets t WHERE t.employee_id = $1 AND t.week_start = $2`

	ts, err := scanTimesheet(q.QueryRow(ctx, query, employeeID, weekStart))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
		}
		return timesheet.Timesheet{}, err
	}
	return ts, nil
}

func (r *timesheetRepositoryImpl) ListByEmployee(ctx context.Context, employeeID string) ([]timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timesheetColumns + ` FROM timesheets t WHERE t.employee_id = $1 ORDER BY t.week_start DESC`

	rows, err := q.Query(ctx, query, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTimesheets(rows)
}

func (r *timesheetRepositoryImpl) ListByStatuses(ctx context.Context, statuses ...timesheet.Status) ([]timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	args := make([]interface{}, 0, len(statuses))
	placeholders := make([]string, 0, len(statuses))
	for i, s := range statuses {
		args = append(args, string(s))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}

	query := `SELECT ` + timesheetColumns + `
		FROM timesheets t
		WHERE t.status IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY t.submitted_at ASC NULLS LAST`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTimesheets(rows)
}

func (r *timesheetRepositoryImpl) ListLockCandidates(ctx context.Context, approvedBefore time.Time) ([]timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + timesheetColumns + `
		FROM timesheets t
		WHERE t.status = $1 AND t.final_decided_at < $2
		ORDER BY t.final_decided_at ASC`

	rows, err := q.Query(ctx, query, timesheet.StatusApproved, approvedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTimesheets(rows)
}

// UpdateStatus applies a transition with an optimistic version check: the
// write only lands when the stored version still matches, and bumps it in
// the same statement. Status and version live in the same row, so they move
// atomically.
func (r *timesheetRepositoryImpl) UpdateStatus(ctx context.Context, upd timesheet.StatusUpdate) error {
	q := GetQuerier(ctx, r.db)

	sets := []string{"status = $3", "version = version + 1", "updated_at = NOW()"}
	args := []interface{}{upd.ID, upd.FromVersion, string(upd.Status)}

	add := func(expr string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}

	if upd.TotalHours != nil {
		add("total_hours = $%d", *upd.TotalHours)
	}
	if upd.SubmittedAt != nil {
		add("submitted_at = $%d", *upd.SubmittedAt)
	}
	if upd.LockedAt != nil {
		add("locked_at = $%d", *upd.LockedAt)
	}
	if rec := upd.ManagerApproval; rec != nil {
		add("manager_actor_id = $%d", rec.ActorID)
		add("manager_role = $%d", string(rec.Role))
		add("manager_decision = $%d", string(rec.Decision))
		add("manager_comment = $%d", rec.Comment)
		add("manager_decided_at = $%d", rec.DecidedAt)
	}
	if rec := upd.FinalApproval; rec != nil {
		add("final_actor_id = $%d", rec.ActorID)
		add("final_role = $%d", string(rec.Role))
		add("final_decision = $%d", string(rec.Decision))
		add("final_comment = $%d", rec.Comment)
		add("final_decided_at = $%d", rec.DecidedAt)
	}
	if upd.ClearApprovals {
		sets = append(sets,
			"manager_actor_id = NULL", "manager_role = NULL", "manager_decision = NULL",
			"manager_comment = NULL", "manager_decided_at = NULL",
			"final_actor_id = NULL", "final_role = NULL", "final_decision = NULL",
			"final_comment = NULL", "final_decided_at = NULL",
		)
	}
	if upd.ClearSubmitted {
		sets = append(sets, "submitted_at = NULL")
	}

	query := `UPDATE timesheets SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 AND version = $2`

	commandTag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		// Row missing or version moved: distinguish so callers can report
		// the exact failure.
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM timesheets WHERE id = $1)`, upd.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return timesheet.ErrTimesheetNotFound
		}
		return timesheet.ErrStateConflict
	}
	return nil
}

func (r *timesheetRepositoryImpl) UpdateTotalHours(ctx context.Context, id string, total float64) error {
	q := GetQuerier(ctx, r.db)

	commandTag, err := q.Exec(ctx, `
		UPDATE timesheets SET total_hours = $2, version = version + 1, updated_at = NOW() WHERE id = $1
	`, id, total)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return timesheet.ErrTimesheetNotFound
	}
	return nil
}

func (r *timesheetRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	commandTag, err := q.Exec(ctx, `DELETE FROM timesheets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return timesheet.ErrTimesheetNotFound
	}
	return nil
}

func collectTimesheets(rows pgx.Rows) ([]timesheet.Timesheet, error) {
	var result []timesheet.Timesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ts)
	}
	return result, rows.Err()
}
