package postgresql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/database"
)

type activityRepositoryImpl struct {
	db *database.DB
}

func NewActivityRepository(db *database.DB) timesheet.ActivityRepository {
	return &activityRepositoryImpl{db: db}
}

func (r *activityRepositoryImpl) Create(ctx context.Context, activity timesheet.Activity) (timesheet.Activity, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO activities (
			id, timesheet_id, task_id, activity_date, hours, description, category,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			NOW(), NOW()
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		uuid.NewString(), activity.TimesheetID, activity.TaskID,
		activity.Date, activity.Hours, activity.Description, activity.Category,
	).Scan(&activity.ID, &activity.CreatedAt, &activity.UpdatedAt)
	if err != nil {
		return timesheet.Activity{}, err
	}

	return activity, nil
}

func (r *activityRepositoryImpl) GetByID(ctx context.Context, id string) (timesheet.Activity, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, timesheet_id, task_id, activity_date, hours, description, category, created_at, updated_at
		FROM activities
		WHERE id = $1
	`

	var a timesheet.Activity
	err := q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.TimesheetID, &a.TaskID, &a.Date, &a.Hours, &a.Description, &a.Category,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Activity{}, timesheet.ErrActivityNotFound
		}
		return timesheet.Activity{}, err
	}
	return a, nil
}

func (r *activityRepositoryImpl) Update(ctx context.Context, activity timesheet.Activity) error {
	q := GetQuerier(ctx, r.db)

	commandTag, err := q.Exec(ctx, `
		UPDATE activities
		SET task_id = $2, activity_date = $3, hours = $4, description = $5, category = $6, updated_at = NOW()
		WHERE id = $1
	`, activity.ID, activity.TaskID, activity.Date, activity.Hours, activity.Description, activity.Category)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return timesheet.ErrActivityNotFound
	}
	return nil
}

func (r *activityRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	commandTag, err := q.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return timesheet.ErrActivityNotFound
	}
	return nil
}

func (r *activityRepositoryImpl) ListByTimesheet(ctx context.Context, timesheetID string) ([]timesheet.Activity, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, timesheet_id, task_id, activity_date, hours, description, category, created_at, updated_at
		FROM activities
		WHERE timesheet_id = $1
		ORDER BY activity_date ASC, created_at ASC
	`

	rows, err := q.Query(ctx, query, timesheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []timesheet.Activity
	for rows.Next() {
		var a timesheet.Activity
		err := rows.Scan(
			&a.ID, &a.TimesheetID, &a.TaskID, &a.Date, &a.Hours, &a.Description, &a.Category,
			&a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (r *activityRepositoryImpl) SumHours(ctx context.Context, timesheetID string) (float64, error) {
	q := GetQuerier(ctx, r.db)

	var total float64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(hours), 0) FROM activities WHERE timesheet_id = $1
	`, timesheetID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *activityRepositoryImpl) CountByTimesheet(ctx context.Context, timesheetID string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	var count int64
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM activities WHERE timesheet_id = $1
	`, timesheetID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
