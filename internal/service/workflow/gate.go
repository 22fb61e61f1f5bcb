package workflow

import (
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
)

// Capabilities is the single place a role is granted a transition. New roles
// extend this table; no call site checks role strings directly.
var Capabilities = map[user.Role]map[timesheet.Transition]bool{
	user.RoleEmployee: {
		timesheet.TransitionSubmit: true,
		timesheet.TransitionCancel: true,
	},
	user.RoleManager: {
		timesheet.TransitionSubmit:         true,
		timesheet.TransitionCancel:         true,
		timesheet.TransitionManagerApprove: true,
		timesheet.TransitionManagerReject:  true,
	},
	user.RoleHR: {
		timesheet.TransitionSubmit:         true,
		timesheet.TransitionCancel:         true,
		timesheet.TransitionManagerApprove: true,
		timesheet.TransitionManagerReject:  true,
	},
	user.RoleDirector: {
		timesheet.TransitionSubmit:         true,
		timesheet.TransitionCancel:         true,
		timesheet.TransitionManagerApprove: true,
		timesheet.TransitionManagerReject:  true,
		timesheet.TransitionFinalApprove:   true,
		timesheet.TransitionFinalReject:    true,
	},
	user.RoleAdmin: {
		timesheet.TransitionSubmit:         true,
		timesheet.TransitionCancel:         true,
		timesheet.TransitionManagerApprove: true,
		timesheet.TransitionManagerReject:  true,
		timesheet.TransitionFinalApprove:   true,
		timesheet.TransitionFinalReject:    true,
		timesheet.TransitionRevert:         true,
	},
	// TransitionLock appears in no row: it is system-invoked only.
}

var approvalTransitions = map[timesheet.Transition]bool{
	timesheet.TransitionManagerApprove: true,
	timesheet.TransitionManagerReject:  true,
	timesheet.TransitionFinalApprove:   true,
	timesheet.TransitionFinalReject:    true,
}

var ownerOnlyTransitions = map[timesheet.Transition]bool{
	timesheet.TransitionSubmit: true,
	timesheet.TransitionCancel: true,
}

// Gate decides whether an actor may attempt a transition on a timesheet.
// It is pure: no storage access, no side effects.
type Gate struct{}

func NewGate() *Gate {
	return &Gate{}
}

// CanTransition returns nil when the actor may attempt the transition, or
// the specific authorization error otherwise. Transition validity against
// the current status is the engine's concern, not the gate's.
func (g *Gate) CanTransition(actorRole user.Role, actorID, ownerID string, transition timesheet.Transition) error {
	if ownerOnlyTransitions[transition] && actorID != ownerID {
		return timesheet.ErrNotOwner
	}

	// Self-approval is denied regardless of role.
	if approvalTransitions[transition] && actorID == ownerID {
		return timesheet.ErrSelfApproval
	}

	caps, ok := Capabilities[actorRole]
	if !ok || !caps[transition] {
		return timesheet.ErrForbidden
	}

	return nil
}
