// Package workflow implements the join/registration state machine.
//
// # Overview
//
// A join request is created in state pending and mutated exactly once into
// a terminal state:
//
//	PENDING
//	   ├── approve → APPROVED (creates a membership)
//	   ├── reject  → REJECTED
//	   └── cancel  → CANCELLED (requester withdraws)
//
// Request submission runs seven ordered preconditions (authentication,
// visibility, manager exclusion, hub-membership eligibility, duplicate
// membership, duplicate pending request, capacity/window) and the first
// failure wins. Submission and resolution are idempotent: re-requesting
// returns the existing pending request, and re-resolving a terminal request
// fails with invalid_state rather than double-applying the effect.
//
// All writes go through the Store, which leans on the database's partial
// unique indexes so concurrent submissions cannot create duplicate pending
// requests or memberships.
package workflow
