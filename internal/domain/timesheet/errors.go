package timesheet

import "errors"

// Not found
var (
	ErrTimesheetNotFound = errors.New("timesheet not found")
	ErrActivityNotFound  = errors.New("activity not found")
)

// Validation
var (
	ErrWeekStartNotMonday   = errors.New("week start must be a Monday")
	ErrDateOutsideWeek      = errors.New("activity date is outside the timesheet week")
	ErrHoursNotQuarterly    = errors.New("hours must be a multiple of 0.25")
	ErrHoursOutOfRange      = errors.New("hours must be positive and at most 24 per day")
	ErrNoActivities         = errors.New("cannot submit a timesheet without activities")
	ErrZeroTotalHours       = errors.New("cannot submit a timesheet with zero declared hours")
	ErrWeekInFuture         = errors.New("cannot submit a timesheet for a future week")
	ErrCommentRequired      = errors.New("a comment is required when rejecting")
	ErrReasonRequired       = errors.New("a reason is required to revert a timesheet")
	ErrInvalidDecision      = errors.New("decision must be approve or reject")
	ErrInvalidRevertTarget  = errors.New("invalid revert target status")
)

// Authorization
var (
	ErrNotOwner        = errors.New("only the timesheet owner may perform this action")
	ErrSelfApproval    = errors.New("approvers cannot decide on their own timesheet")
	ErrNotDraft        = errors.New("timesheet is not in draft: activities are immutable")
	ErrTimesheetLocked = errors.New("timesheet is locked and permanently immutable")
	ErrForbidden       = errors.New("role is not allowed to perform this transition")
)

// State conflict
var (
	ErrStateConflict       = errors.New("timesheet was modified concurrently, refresh and retry")
	ErrInvalidTransition   = errors.New("transition is not valid from the current status")
	ErrNotPendingManager   = errors.New("cannot approve: timesheet is not pending manager review")
	ErrNotPendingFinal     = errors.New("cannot approve: timesheet is not pending final review")
	ErrCancelAfterDecision = errors.New("cannot cancel: an approval decision has already been recorded")
	ErrWeekAlreadyExists   = errors.New("a timesheet for this week already exists")
)
