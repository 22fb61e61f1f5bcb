package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
)

const (
	ownerID    = "owner-1"
	reviewerID = "reviewer-1"
)

func TestGate_OwnerOnlyTransitions(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		name       string
		actorID    string
		transition timesheet.Transition
		wantErr    error
	}{
		{"owner submits", ownerID, timesheet.TransitionSubmit, nil},
		{"owner cancels", ownerID, timesheet.TransitionCancel, nil},
		{"non-owner submits", reviewerID, timesheet.TransitionSubmit, timesheet.ErrNotOwner},
		{"non-owner cancels", reviewerID, timesheet.TransitionCancel, timesheet.ErrNotOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.CanTransition(user.RoleEmployee, tt.actorID, ownerID, tt.transition)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGate_SelfApprovalDenied(t *testing.T) {
	gate := NewGate()

	// Even the most privileged roles may not approve their own timesheet.
	roles := []user.Role{user.RoleManager, user.RoleHR, user.RoleDirector, user.RoleAdmin}
	transitions := []timesheet.Transition{
		timesheet.TransitionManagerApprove,
		timesheet.TransitionManagerReject,
		timesheet.TransitionFinalApprove,
		timesheet.TransitionFinalReject,
	}

	for _, role := range roles {
		for _, tr := range transitions {
			err := gate.CanTransition(role, ownerID, ownerID, tr)
			assert.ErrorIs(t, err, timesheet.ErrSelfApproval, "role %s transition %s", role, tr)
		}
	}
}

func TestGate_CapabilityMatrix(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		role       user.Role
		transition timesheet.Transition
		allowed    bool
	}{
		{user.RoleEmployee, timesheet.TransitionManagerApprove, false},
		{user.RoleEmployee, timesheet.TransitionFinalApprove, false},
		{user.RoleEmployee, timesheet.TransitionRevert, false},

		{user.RoleManager, timesheet.TransitionManagerApprove, true},
		{user.RoleManager, timesheet.TransitionManagerReject, true},
		{user.RoleManager, timesheet.TransitionFinalApprove, false},
		{user.RoleManager, timesheet.TransitionRevert, false},

		{user.RoleHR, timesheet.TransitionManagerApprove, true},
		{user.RoleHR, timesheet.TransitionFinalApprove, false},

		{user.RoleDirector, timesheet.TransitionManagerApprove, true},
		{user.RoleDirector, timesheet.TransitionFinalApprove, true},
		{user.RoleDirector, timesheet.TransitionFinalReject, true},
		{user.RoleDirector, timesheet.TransitionRevert, false},

		{user.RoleAdmin, timesheet.TransitionFinalApprove, true},
		{user.RoleAdmin, timesheet.TransitionRevert, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.transition), func(t *testing.T) {
			err := gate.CanTransition(tt.role, reviewerID, ownerID, tt.transition)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, timesheet.ErrForbidden)
			}
		})
	}
}

func TestGate_LockIsSystemOnly(t *testing.T) {
	gate := NewGate()

	for role := range Capabilities {
		err := gate.CanTransition(role, reviewerID, ownerID, timesheet.TransitionLock)
		assert.ErrorIs(t, err, timesheet.ErrForbidden, "role %s", role)
	}
}

func TestGate_UnknownRole(t *testing.T) {
	gate := NewGate()
	err := gate.CanTransition(user.Role("contractor"), ownerID, ownerID, timesheet.TransitionSubmit)
	assert.ErrorIs(t, err, timesheet.ErrForbidden)
}
