package response

import (
	"errors"
	"net/http"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses. Each error kind carries
// a stable status: validation 422, authorization 403, state conflicts 409,
// missing entities 404.
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Not found
	case errors.Is(err, timesheet.ErrTimesheetNotFound):
		NotFound(w, "Timesheet not found")
	case errors.Is(err, timesheet.ErrActivityNotFound):
		NotFound(w, "Activity not found")
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")

	// Validation
	case errors.Is(err, timesheet.ErrWeekStartNotMonday),
		errors.Is(err, timesheet.ErrDateOutsideWeek),
		errors.Is(err, timesheet.ErrHoursNotQuarterly),
		errors.Is(err, timesheet.ErrHoursOutOfRange),
		errors.Is(err, timesheet.ErrNoActivities),
		errors.Is(err, timesheet.ErrZeroTotalHours),
		errors.Is(err, timesheet.ErrWeekInFuture),
		errors.Is(err, timesheet.ErrCommentRequired),
		errors.Is(err, timesheet.ErrReasonRequired),
		errors.Is(err, timesheet.ErrInvalidDecision),
		errors.Is(err, timesheet.ErrInvalidRevertTarget):
		UnprocessableEntity(w, err.Error())

	// Authorization: includes mutation attempts outside DRAFT and on locked
	// timesheets.
	case errors.Is(err, timesheet.ErrNotOwner),
		errors.Is(err, timesheet.ErrSelfApproval),
		errors.Is(err, timesheet.ErrNotDraft),
		errors.Is(err, timesheet.ErrTimesheetLocked),
		errors.Is(err, timesheet.ErrForbidden),
		errors.Is(err, user.ErrAdminPrivilegeRequired),
		errors.Is(err, user.ErrUserInactive):
		Forbidden(w, err.Error())

	// State conflicts
	case errors.Is(err, timesheet.ErrStateConflict),
		errors.Is(err, timesheet.ErrInvalidTransition),
		errors.Is(err, timesheet.ErrNotPendingManager),
		errors.Is(err, timesheet.ErrNotPendingFinal),
		errors.Is(err, timesheet.ErrCancelAfterDecision),
		errors.Is(err, timesheet.ErrWeekAlreadyExists):
		Conflict(w, err.Error())

	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
