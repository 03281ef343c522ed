// Package visibility decides whether a principal may view a resource,
// evaluating the resource's visibility policy against hub-role and
// membership facts. Resolution has no side effects and must run before any
// workflow operation; the workflow assumes visibility has already been
// confirmed.
package visibility

import (
	"context"

	"github.com/campushub/hubaccess/pkg/access"
	"github.com/campushub/hubaccess/pkg/membership"
	"github.com/campushub/hubaccess/pkg/roles"
)

// Resolver evaluates visibility policies.
type Resolver struct {
	roles    roles.Directory
	registry membership.Registry
}

// NewResolver creates a visibility resolver.
func NewResolver(dir roles.Directory, reg membership.Registry) *Resolver {
	return &Resolver{roles: dir, registry: reg}
}

// CanView reports whether the principal may view the resource. A nil
// principal is an anonymous caller.
func (r *Resolver) CanView(ctx context.Context, principal *access.Principal, resource *access.Resource) (bool, error) {
	switch resource.Visibility {
	case access.VisibilityPublic:
		return true, nil

	case access.VisibilityAuthenticated:
		return principal != nil, nil

	case access.VisibilityHubMembers:
		if principal == nil {
			return false, nil
		}
		// Any hub relationship qualifies, not only resource membership.
		role, err := r.roles.RoleOf(ctx, principal.ID, resource.HubID)
		if err != nil {
			return false, err
		}
		return role != access.RoleNone, nil

	case access.VisibilityProgrammeMembers:
		if principal == nil {
			return false, nil
		}
		// Check membership of the gating programme; a programme resource
		// gates on itself.
		programmeID := resource.ID
		if resource.ProgrammeID != nil {
			programmeID = *resource.ProgrammeID
		}
		m, err := r.registry.ActiveMembership(ctx, principal.ID, programmeID)
		if err != nil {
			return false, err
		}
		return m != nil, nil

	default:
		// Unknown policies deny rather than leak.
		return false, nil
	}
}
