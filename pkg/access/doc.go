// Package access defines the shared domain model of the hub access engine.
//
// # Overview
//
// The engine answers one family of questions for the portal: can this
// principal see, join, or manage this resource? This package holds the types
// those answers are expressed in (principals, hubs, resources, memberships,
// join requests) and the typed error taxonomy every engine operation
// reports failures through.
//
// # Error Kinds
//
// All engine failures are *access.Error values with a Kind:
//
//	unauthenticated    caller is anonymous
//	forbidden          visibility or authority check failed
//	already_managing   managers do not request to join what they manage
//	not_eligible       baseline hub membership missing
//	already_member     idempotent success signal, not a hard failure
//	capacity_exceeded  seat limit reached
//	window_closed      outside the availability window
//	invalid_state      request already resolved
//	not_found          unknown hub/resource/request
//	transient          store failure, safe to retry
//
// Callers branch on kinds via access.IsKind / access.KindOf:
//
//	req, err := engine.Request(ctx, principal, resourceID, msg)
//	if access.IsKind(err, access.KindAlreadyMember) {
//		// nothing to do, render "you are already a member"
//	}
//
// # Related Packages
//
//   - pkg/roles: hub-scoped role facts
//   - pkg/membership: active membership registry
//   - pkg/workflow: the join/registration state machine
package access
