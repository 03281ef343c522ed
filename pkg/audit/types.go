package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies the state transition being reported
type Action string

const (
	ActionRequestSubmit  Action = "request.submit"
	ActionRequestApprove Action = "request.approve"
	ActionRequestReject  Action = "request.reject"
	ActionRequestCancel  Action = "request.cancel"
	ActionMemberCreate   Action = "membership.create"
)

// Status represents the outcome of the reported action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

// EntityType identifies the entity the action targeted
type EntityType string

const (
	EntityJoinRequest EntityType = "join_request"
	EntityMembership  EntityType = "membership"
	EntityResource    EntityType = "resource"
)

// Event is a single audit entry. Every Request/Resolve transition, success
// or failure, is reported as one event to the sink the portal's audit-log
// subsystem reads from.
type Event struct {
	ID         int64      `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Action     Action     `json:"action"`
	Status     Status     `json:"status"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	EntityType EntityType `json:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	Detail     string     `json:"detail,omitempty"`
}
