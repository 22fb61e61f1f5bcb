package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
)

func TestTagsFor_AlwaysIncludesOwnerTag(t *testing.T) {
	transitions := []timesheet.Transition{
		timesheet.TransitionSubmit,
		timesheet.TransitionCancel,
		timesheet.TransitionManagerApprove,
		timesheet.TransitionManagerReject,
		timesheet.TransitionFinalApprove,
		timesheet.TransitionFinalReject,
		timesheet.TransitionRevert,
		timesheet.TransitionLock,
	}

	for _, tr := range transitions {
		tags := TagsFor(tr, "emp-1")
		assert.Contains(t, tags, TagOwnerTimesheets+"emp-1", "transition %s", tr)
	}
}

func TestTagsFor_TransitionViews(t *testing.T) {
	tests := []struct {
		transition timesheet.Transition
		want       []string
	}{
		{timesheet.TransitionSubmit, []string{TagPendingManager}},
		{timesheet.TransitionManagerApprove, []string{TagPendingManager, TagPendingFinal}},
		{timesheet.TransitionFinalApprove, []string{TagPendingFinal, TagHoursDashboard}},
		{timesheet.TransitionRevert, []string{TagPendingManager, TagPendingFinal, TagHoursDashboard}},
		{timesheet.TransitionLock, []string{TagLockedTimesheets, TagHoursDashboard}},
	}

	for _, tt := range tests {
		t.Run(string(tt.transition), func(t *testing.T) {
			tags := TagsFor(tt.transition, "emp-1")
			for _, want := range tt.want {
				assert.Contains(t, tags, want)
			}
		})
	}
}
