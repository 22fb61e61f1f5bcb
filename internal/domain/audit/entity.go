package audit

import (
	"time"
)

type ActionKind string

const (
	ActionKindCreate  ActionKind = "create"
	ActionKindUpdate  ActionKind = "update"
	ActionKindDelete  ActionKind = "delete"
	ActionKindSubmit  ActionKind = "submit"
	ActionKindApprove ActionKind = "approve"
	ActionKindReject  ActionKind = "reject"
	ActionKindCancel  ActionKind = "cancel"
	// ActionKindRevert is distinct from update so administrative resets are
	// separable in the trail.
	ActionKindRevert ActionKind = "revert"
	ActionKindLock   ActionKind = "lock"
)

type EntityType string

const (
	EntityTimesheet EntityType = "timesheet"
	EntityActivity  EntityType = "activity"
)

// FieldChange is one changed field in a structured diff.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

type Diff map[string]FieldChange

// Entry is an append-only audit record. ActorID is nil for system actions
// (the scheduled lock sweep).
type Entry struct {
	ID         string     `json:"id"`
	ActorID    *string    `json:"actor_id,omitempty"`
	Action     ActionKind `json:"action"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Diff       Diff       `json:"diff,omitempty"`
	Reason     *string    `json:"reason,omitempty"`
	ClientIP   *string    `json:"client_ip,omitempty"`
	UserAgent  *string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
