package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
)

// InvalidationsChannel announces invalidated tags to read-side subscribers.
const InvalidationsChannel = "cache.invalidations"

// Read-side cache tags. Owner-scoped tags take the employee id as suffix.
const (
	TagOwnerTimesheets  = "timesheets:employee:" // + ownerID
	TagPendingManager   = "approvals:pending:manager"
	TagPendingFinal     = "approvals:pending:final"
	TagHoursDashboard   = "dashboard:hours"
	TagLockedTimesheets = "timesheets:locked"
)

// transitionTags maps each transition to the read-side views it makes stale.
// Owner-scoped tags are appended in TagsFor.
var transitionTags = map[timesheet.Transition][]string{
	timesheet.TransitionSubmit:         {TagPendingManager},
	timesheet.TransitionCancel:         {TagPendingManager},
	timesheet.TransitionManagerApprove: {TagPendingManager, TagPendingFinal},
	timesheet.TransitionManagerReject:  {TagPendingManager},
	timesheet.TransitionFinalApprove:   {TagPendingFinal, TagHoursDashboard},
	timesheet.TransitionFinalReject:    {TagPendingFinal},
	timesheet.TransitionRevert:         {TagPendingManager, TagPendingFinal, TagHoursDashboard},
	timesheet.TransitionLock:           {TagLockedTimesheets, TagHoursDashboard},
}

// TagsFor returns the fixed tag set a transition invalidates.
func TagsFor(transition timesheet.Transition, ownerID string) []string {
	tags := []string{TagOwnerTimesheets + ownerID}
	tags = append(tags, transitionTags[transition]...)
	return tags
}

// Invalidator signals read-side cache refreshes after a transition commits.
// Invalidation is best-effort and eventually consistent: it never blocks or
// fails the primary transition.
type Invalidator struct {
	rdb *redis.Client
}

func NewInvalidator(rdb *redis.Client) *Invalidator {
	return &Invalidator{rdb: rdb}
}

// Invalidate drops the affected tags and announces them. Errors are logged,
// never returned.
func (i *Invalidator) Invalidate(transition timesheet.Transition, ownerID string) {
	tags := TagsFor(transition, ownerID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := i.rdb.Del(ctx, tags...).Err(); err != nil {
			slog.Error("Cache tag invalidation failed", "tags", tags, "error", err)
		}
		for _, tag := range tags {
			if err := i.rdb.Publish(ctx, InvalidationsChannel, tag).Err(); err != nil {
				slog.Error("Cache invalidation publish failed", "tag", tag, "error", err)
			}
		}
	}()
}
