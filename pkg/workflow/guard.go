package workflow

import (
	"context"
	"time"

	"github.com/campushub/hubaccess/pkg/access"
	"github.com/campushub/hubaccess/pkg/membership"
)

// Guard runs the auxiliary admission checks: availability window and seat
// capacity. Only active memberships count toward capacity; pending and
// rejected requests never do. The capacity check is best effort; the
// store's uniqueness constraints close the remaining race on approval.
type Guard struct {
	registry membership.Registry
	now      func() time.Time
}

// NewGuard creates a guard backed by the membership registry.
func NewGuard(reg membership.Registry) *Guard {
	return &Guard{registry: reg, now: time.Now}
}

// Check validates the resource's window and capacity constraints. It
// returns a typed error of kind WindowClosed or CapacityExceeded on
// violation.
func (g *Guard) Check(ctx context.Context, resource *access.Resource) error {
	now := g.now()
	if resource.OpensAt != nil && now.Before(*resource.OpensAt) {
		return access.NewError(access.KindWindowClosed, "resource %s is not open until %s", resource.ID, resource.OpensAt.Format(time.RFC3339))
	}
	if resource.ClosesAt != nil && now.After(*resource.ClosesAt) {
		return access.NewError(access.KindWindowClosed, "resource %s closed at %s", resource.ID, resource.ClosesAt.Format(time.RFC3339))
	}

	if resource.Capacity != nil {
		count, err := g.registry.CountActive(ctx, resource.ID)
		if err != nil {
			return err
		}
		if count >= *resource.Capacity {
			return access.NewError(access.KindCapacityExceeded, "resource %s is full (%d/%d)", resource.ID, count, *resource.Capacity)
		}
	}

	return nil
}
