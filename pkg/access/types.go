package access

import (
	"time"

	"github.com/google/uuid"
)

// HubRole represents a principal's role within a hub
type HubRole string

const (
	RoleNone       HubRole = "none"
	RoleMember     HubRole = "member"
	RoleHubLeader  HubRole = "hub_leader"
	RoleSupervisor HubRole = "supervisor"
)

// Manages reports whether the role carries management authority over the
// hub's resources.
func (r HubRole) Manages() bool {
	return r == RoleHubLeader || r == RoleSupervisor
}

// MemberRole represents a principal's role within a resource they belong to
type MemberRole string

const (
	MemberRoleMember     MemberRole = "member"
	MemberRoleSupervisor MemberRole = "supervisor"
)

// VisibilityPolicy controls who may view a resource
type VisibilityPolicy string

const (
	VisibilityPublic           VisibilityPolicy = "public"
	VisibilityAuthenticated    VisibilityPolicy = "authenticated"
	VisibilityHubMembers       VisibilityPolicy = "hub_members"
	VisibilityProgrammeMembers VisibilityPolicy = "programme_members"
)

// ResourceKind identifies the type of a joinable resource
type ResourceKind string

const (
	KindProject   ResourceKind = "project"
	KindProgramme ResourceKind = "programme"
	KindEvent     ResourceKind = "event"
)

// RequiresHubMembership reports whether joining a resource of this kind
// requires an existing relationship with the owning hub. Event registration
// is open to any principal who can view the event.
func (k ResourceKind) RequiresHubMembership() bool {
	return k == KindProject || k == KindProgramme
}

// Principal represents an authenticated actor. Anonymous callers are
// represented by a nil *Principal.
type Principal struct {
	ID uuid.UUID `json:"id"`
}

// Hub is an organizational container owning resources
type Hub struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Resource is a joinable/viewable entity owned by a hub
type Resource struct {
	ID         uuid.UUID        `json:"id"`
	HubID      uuid.UUID        `json:"hub_id"`
	Kind       ResourceKind     `json:"kind"`
	Visibility VisibilityPolicy `json:"visibility"`

	// ProgrammeID gates programme-scoped visibility for resources nested
	// under a programme. Nil for standalone resources; for a programme
	// itself the membership check runs against the resource directly.
	ProgrammeID *uuid.UUID `json:"programme_id,omitempty"`

	// Capacity limits concurrent active memberships. Nil means unlimited.
	Capacity *int `json:"capacity,omitempty"`

	// OpensAt/ClosesAt bound when joining is allowed. A nil bound removes
	// that side of the constraint.
	OpensAt  *time.Time `json:"opens_at,omitempty"`
	ClosesAt *time.Time `json:"closes_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Membership is a durable record of a principal's accepted participation in
// a resource. At most one non-terminated membership exists per
// (principal, resource).
type Membership struct {
	ID           uuid.UUID  `json:"id"`
	PrincipalID  uuid.UUID  `json:"principal_id"`
	ResourceID   uuid.UUID  `json:"resource_id"`
	Role         MemberRole `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	TerminatedAt *time.Time `json:"terminated_at,omitempty"`
}

// Active reports whether the membership is currently in force.
func (m *Membership) Active() bool {
	return m.TerminatedAt == nil
}

// RequestState represents the lifecycle state of a join request
type RequestState string

const (
	StatePending   RequestState = "pending"
	StateApproved  RequestState = "approved"
	StateRejected  RequestState = "rejected"
	StateCancelled RequestState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s RequestState) Terminal() bool {
	return s == StateApproved || s == StateRejected || s == StateCancelled
}

// JoinRequest records a principal's intent to join or register for a
// resource. Requests are never deleted; they form the audit trail of the
// admission workflow.
type JoinRequest struct {
	ID              uuid.UUID    `json:"id"`
	PrincipalID     uuid.UUID    `json:"principal_id"`
	ResourceID      uuid.UUID    `json:"resource_id"`
	Message         string       `json:"message,omitempty"`
	State           RequestState `json:"state"`
	CreatedAt       time.Time    `json:"created_at"`
	ResolvedAt      *time.Time   `json:"resolved_at,omitempty"`
	ResolvedBy      *uuid.UUID   `json:"resolved_by,omitempty"`
	ResponseMessage string       `json:"response_message,omitempty"`
}

// PendingReview is the read model for hub-leader review screens: a pending
// join request joined with enough resource metadata to render without extra
// lookups.
type PendingReview struct {
	Request      JoinRequest  `json:"request"`
	ResourceKind ResourceKind `json:"resource_kind"`
	HubID        uuid.UUID    `json:"hub_id"`
}
