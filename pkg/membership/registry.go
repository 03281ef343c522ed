package membership

import (
	"context"

	"github.com/google/uuid"

	"github.com/campushub/hubaccess/pkg/access"
)

// Registry tracks active memberships of principals in resources. All state
// lives in the durable store; the registry holds nothing beyond what it
// reads and writes through it.
type Registry interface {
	// ActiveMembership returns the principal's active membership in the
	// resource, or nil when none exists.
	ActiveMembership(ctx context.Context, principalID, resourceID uuid.UUID) (*access.Membership, error)

	// CreateMembership creates an active membership. Idempotent: if an
	// active membership already exists for (principal, resource) it is
	// returned unchanged.
	CreateMembership(ctx context.Context, principalID, resourceID uuid.UUID, role access.MemberRole) (*access.Membership, error)

	// CountActive returns the number of active memberships in the
	// resource. Consulted by the capacity guard.
	CountActive(ctx context.Context, resourceID uuid.UUID) (int, error)

	// MembershipsForPrincipal returns all active memberships held by the
	// principal, newest first.
	MembershipsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]*access.Membership, error)
}
