package timesheet

import (
	"time"

	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/validator"
)

type CreateTimesheetRequest struct {
	WeekStart string `json:"week_start"`
}

func (r *CreateTimesheetRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.WeekStart) {
		errs = append(errs, validator.ValidationError{
			Field:   "week_start",
			Message: "week_start is required",
		})
		return errs
	}

	if _, ok := validator.IsValidDate(r.WeekStart); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "week_start",
			Message: "week_start must be a valid date (YYYY-MM-DD)",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ActivityRequest struct {
	TaskID      *string `json:"task_id,omitempty"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
	Category    *string `json:"category,omitempty"`
}

func (r *ActivityRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be a valid date (YYYY-MM-DD)",
		})
	}

	if validator.IsEmpty(r.Description) {
		errs = append(errs, validator.ValidationError{
			Field:   "description",
			Message: "description is required",
		})
	}
	if len(r.Description) > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "description",
			Message: "description must not exceed 1000 characters",
		})
	}

	if r.TaskID != nil && !validator.IsValidUUID(*r.TaskID) {
		errs = append(errs, validator.ValidationError{
			Field:   "task_id",
			Message: "task_id must be a valid UUID",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ParsedDate returns the activity date; Validate must have passed.
func (r *ActivityRequest) ParsedDate() time.Time {
	date, _ := validator.IsValidDate(r.Date)
	return date
}

type DecisionRequest struct {
	Decision string  `json:"decision"`
	Comment  *string `json:"comment,omitempty"`
}

func (r *DecisionRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsInSlice(r.Decision, []string{string(DecisionApprove), string(DecisionReject)}) {
		errs = append(errs, validator.ValidationError{
			Field:   "decision",
			Message: "decision must be either approve or reject",
		})
	}

	if Decision(r.Decision) == DecisionReject {
		if r.Comment == nil || validator.IsEmpty(*r.Comment) {
			errs = append(errs, validator.ValidationError{
				Field:   "comment",
				Message: "comment is required when rejecting",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RevertRequest struct {
	TargetStatus string `json:"target_status"`
	Reason       string `json:"reason"`
}

func (r *RevertRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, ok := ValidStatusTransitions[Status(r.TargetStatus)]; !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "target_status",
			Message: "target_status is not a known status",
		})
	} else if Status(r.TargetStatus) == StatusLocked {
		errs = append(errs, validator.ValidationError{
			Field:   "target_status",
			Message: "cannot revert to locked",
		})
	}

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ActivityResponse augments an activity with the overtime review flag.
type ActivityResponse struct {
	ID          string  `json:"id"`
	TimesheetID string  `json:"timesheet_id"`
	TaskID      *string `json:"task_id,omitempty"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
	Category    *string `json:"category,omitempty"`
	Overtime    bool    `json:"overtime"`
}

type ApprovalResponse struct {
	ActorID   string    `json:"actor_id"`
	Role      string    `json:"role"`
	Decision  string    `json:"decision"`
	Comment   *string   `json:"comment,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

type TimesheetResponse struct {
	ID              string             `json:"id"`
	EmployeeID      string             `json:"employee_id"`
	EmployeeName    *string            `json:"employee_name,omitempty"`
	WeekStart       string             `json:"week_start"`
	WeekEnd         string             `json:"week_end"`
	Status          string             `json:"status"`
	TotalHours      float64            `json:"total_hours"`
	Version         int64              `json:"version"`
	SubmittedAt     *time.Time         `json:"submitted_at,omitempty"`
	ManagerApproval *ApprovalResponse  `json:"manager_approval,omitempty"`
	FinalApproval   *ApprovalResponse  `json:"final_approval,omitempty"`
	LockedAt        *time.Time         `json:"locked_at,omitempty"`
	Activities      []ActivityResponse `json:"activities,omitempty"`
}

func toApprovalResponse(rec *ApprovalRecord) *ApprovalResponse {
	if rec == nil {
		return nil
	}
	return &ApprovalResponse{
		ActorID:   rec.ActorID,
		Role:      string(rec.Role),
		Decision:  string(rec.Decision),
		Comment:   rec.Comment,
		DecidedAt: rec.DecidedAt,
	}
}

// ToResponse maps the entity to its API shape.
func (t *Timesheet) ToResponse() TimesheetResponse {
	resp := TimesheetResponse{
		ID:              t.ID,
		EmployeeID:      t.EmployeeID,
		EmployeeName:    t.EmployeeName,
		WeekStart:       t.WeekStart.Format("2006-01-02"),
		WeekEnd:         t.WeekEnd.Format("2006-01-02"),
		Status:          string(t.Status),
		TotalHours:      t.TotalHours,
		Version:         t.Version,
		SubmittedAt:     t.SubmittedAt,
		ManagerApproval: toApprovalResponse(t.ManagerApproval),
		FinalApproval:   toApprovalResponse(t.FinalApproval),
		LockedAt:        t.LockedAt,
	}
	for i := range t.Activities {
		a := &t.Activities[i]
		resp.Activities = append(resp.Activities, ActivityResponse{
			ID:          a.ID,
			TimesheetID: a.TimesheetID,
			TaskID:      a.TaskID,
			Date:        a.Date.Format("2006-01-02"),
			Hours:       a.Hours,
			Description: a.Description,
			Category:    a.Category,
			Overtime:    a.IsOvertime(),
		})
	}
	return resp
}
