package roles

import (
	"context"

	"github.com/google/uuid"

	"github.com/campushub/hubaccess/pkg/access"
)

// Directory resolves hub-scoped role facts for principals. It is a pure
// lookup over externally managed assignments; the engine never mutates
// role facts.
type Directory interface {
	// RoleOf returns the principal's role in the given hub. A principal
	// with no relationship to the hub yields access.RoleNone; only an
	// unknown hub is an error (access.KindNotFound).
	RoleOf(ctx context.Context, principalID, hubID uuid.UUID) (access.HubRole, error)

	// IsPlatformAdmin reports whether the principal is a platform
	// administrator. Unknown principals are simply not admins.
	IsPlatformAdmin(ctx context.Context, principalID uuid.UUID) (bool, error)
}
