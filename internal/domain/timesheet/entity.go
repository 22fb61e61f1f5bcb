package timesheet

import (
	"math"
	"time"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
)

type Status string

const (
	StatusDraft           Status = "draft"
	StatusSubmitted       Status = "submitted"
	StatusManagerApproved Status = "manager_approved"
	StatusApproved        Status = "approved"
	StatusLocked          Status = "locked"
	StatusRejected        Status = "rejected"
)

// ValidStatusTransitions is the forward workflow: from -> []to.
// The administrative revert is deliberately absent; it bypasses this table
// and is validated separately (any non-locked state back to a non-locked
// target).
var ValidStatusTransitions = map[Status][]Status{
	StatusDraft:           {StatusSubmitted},
	StatusSubmitted:       {StatusManagerApproved, StatusRejected, StatusDraft},
	StatusManagerApproved: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusLocked},
	StatusRejected:        {},
	StatusLocked:          {},
}

func IsValidTransition(from, to Status) bool {
	allowed, ok := ValidStatusTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsValidRevert reports whether an administrative revert from one status to
// another is allowed. Locked timesheets are permanently immutable.
func IsValidRevert(from, target Status) bool {
	if from == StatusLocked || target == StatusLocked {
		return false
	}
	if from == target {
		return false
	}
	_, known := ValidStatusTransitions[target]
	return known
}

type Transition string

const (
	TransitionSubmit         Transition = "submit"
	TransitionManagerApprove Transition = "manager_approve"
	TransitionManagerReject  Transition = "manager_reject"
	TransitionFinalApprove   Transition = "final_approve"
	TransitionFinalReject    Transition = "final_reject"
	TransitionCancel         Transition = "cancel"
	TransitionLock           Transition = "lock"
	TransitionRevert         Transition = "revert"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ApprovalRecord captures a single tier decision. A newer decision replaces
// the live record; the superseded one survives in the audit trail.
type ApprovalRecord struct {
	ActorID   string
	Role      user.Role
	Decision  Decision
	Comment   *string
	DecidedAt time.Time
}

type Timesheet struct {
	ID         string
	EmployeeID string
	WeekStart  time.Time
	WeekEnd    time.Time
	Status     Status
	TotalHours float64
	Version    int64

	SubmittedAt     *time.Time
	ManagerApproval *ApprovalRecord
	FinalApproval   *ApprovalRecord
	LockedAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships (for responses)
	EmployeeName *string
	Activities   []Activity
}

type Activity struct {
	ID          string
	TimesheetID string
	TaskID      *string
	Date        time.Time
	Hours       float64
	Description string
	Category    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	// HourGranularity is the smallest bookable unit (15 minutes).
	HourGranularity = 0.25
	// MaxHoursPerDay bounds a single activity entry.
	MaxHoursPerDay = 24.0
	// ReferenceDailyHours is the nominal working day, Monday to Friday.
	// Entries above it are flagged for review, never rejected.
	ReferenceDailyHours = 8.0
)

// IsQuarterHour reports whether h is a non-negative multiple of 15 minutes.
func IsQuarterHour(h float64) bool {
	if h < 0 {
		return false
	}
	scaled := h / HourGranularity
	return scaled == math.Trunc(scaled)
}

// ValidateHours checks the bookable-hours invariant for a single entry.
func ValidateHours(h float64) error {
	if h <= 0 || h > MaxHoursPerDay {
		return ErrHoursOutOfRange
	}
	if !IsQuarterHour(h) {
		return ErrHoursNotQuarterly
	}
	return nil
}

// WeekEndOf returns the last day of the calendar week starting at weekStart.
func WeekEndOf(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, 6)
}

// InWeek reports whether date falls within the timesheet's week.
func (t *Timesheet) InWeek(date time.Time) bool {
	return !date.Before(t.WeekStart) && !date.After(t.WeekEnd)
}

// IsMutable reports whether activities may still be created, edited or
// deleted.
func (t *Timesheet) IsMutable() bool {
	return t.Status == StatusDraft
}

// IsOvertime reports whether an activity exceeds the daily reference on a
// weekday. Weekend work is always flagged.
func (a *Activity) IsOvertime() bool {
	wd := a.Date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return a.Hours > 0
	}
	return a.Hours > ReferenceDailyHours
}
