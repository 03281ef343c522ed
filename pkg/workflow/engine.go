package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/hubaccess/pkg/access"
	"github.com/campushub/hubaccess/pkg/audit"
	"github.com/campushub/hubaccess/pkg/catalog"
	"github.com/campushub/hubaccess/pkg/membership"
	"github.com/campushub/hubaccess/pkg/observability"
	"github.com/campushub/hubaccess/pkg/roles"
)

// Decision is a resolver's verdict on a pending join request
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Viewer answers visibility questions. Satisfied by *visibility.Resolver.
type Viewer interface {
	CanView(ctx context.Context, principal *access.Principal, resource *access.Resource) (bool, error)
}

// Config carries the engine's collaborators.
type Config struct {
	Roles      roles.Directory
	Registry   membership.Registry
	Visibility Viewer
	Catalog    catalog.Catalog
	Store      Store
	Audit      audit.Logger
	Logger     *observability.Logger
	Metrics    *observability.Metrics
}

// Engine is the join/registration workflow: a state machine over join
// requests, built on the role directory, the membership registry, and the
// capacity/window guard. It holds no mutable state of its own; concurrency
// correctness reduces to the store's transactional guarantees.
type Engine struct {
	roles      roles.Directory
	registry   membership.Registry
	visibility Viewer
	catalog    catalog.Catalog
	store      Store
	guard      *Guard
	audit      audit.Logger
	logger     *observability.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewEngine creates a workflow engine.
func NewEngine(cfg Config) *Engine {
	auditLogger := cfg.Audit
	if auditLogger == nil {
		auditLogger = audit.NewNoopLogger()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Engine{
		roles:      cfg.Roles,
		registry:   cfg.Registry,
		visibility: cfg.Visibility,
		catalog:    cfg.Catalog,
		store:      cfg.Store,
		guard:      NewGuard(cfg.Registry),
		audit:      auditLogger,
		logger:     logger,
		metrics:    cfg.Metrics,
		now:        time.Now,
	}
}

// Request submits a join/registration request for the resource. The
// preconditions run strictly in order; the first failure wins and no
// partial state is written. Re-requesting while a request is pending
// returns the existing pending request.
func (e *Engine) Request(ctx context.Context, principal *access.Principal, resourceID uuid.UUID, message string) (*access.JoinRequest, error) {
	resource, err := e.catalog.Resource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	req, err := e.request(ctx, principal, resource, message)
	e.reportRequest(ctx, principal, resource, req, err)
	return req, err
}

func (e *Engine) request(ctx context.Context, principal *access.Principal, resource *access.Resource, message string) (*access.JoinRequest, error) {
	// 1. Anonymous callers cannot join anything.
	if principal == nil {
		return nil, access.NewError(access.KindUnauthenticated, "joining requires an authenticated principal")
	}

	// 2. Visibility gates everything after it.
	visible, err := e.visibility.CanView(ctx, principal, resource)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, access.NewError(access.KindForbidden, "principal may not view resource %s", resource.ID)
	}

	// 3. Managers do not request to join what they manage. This covers
	// both the hub-scoped role and a supervisor membership held directly
	// on the resource.
	hubRole, err := e.roles.RoleOf(ctx, principal.ID, resource.HubID)
	if err != nil {
		return nil, err
	}
	if hubRole.Manages() {
		return nil, access.NewError(access.KindAlreadyManaging, "principal holds %s in hub %s", hubRole, resource.HubID)
	}
	existing, err := e.registry.ActiveMembership(ctx, principal.ID, resource.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Role == access.MemberRoleSupervisor {
		return nil, access.NewError(access.KindAlreadyManaging, "principal supervises resource %s", resource.ID)
	}

	// 4. Projects and programmes require a baseline hub relationship;
	// event registration does not.
	if resource.Kind.RequiresHubMembership() && hubRole == access.RoleNone {
		return nil, access.NewError(access.KindNotEligible, "joining a %s requires hub membership", resource.Kind)
	}

	// 5. Existing members have nothing to request.
	if existing != nil {
		return nil, access.NewError(access.KindAlreadyMember, "principal is already a member of resource %s", resource.ID)
	}

	// 6. Idempotent submission: an already-pending request is returned
	// as-is.
	pending, err := e.store.PendingFor(ctx, principal.ID, resource.ID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return pending, nil
	}

	// 7. Capacity and window checks.
	if err := e.guard.Check(ctx, resource); err != nil {
		return nil, err
	}

	req := &access.JoinRequest{
		ID:          uuid.New(),
		PrincipalID: principal.ID,
		ResourceID:  resource.ID,
		Message:     message,
		State:       access.StatePending,
		CreatedAt:   e.now().UTC(),
	}
	created, wasCreated, err := e.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if wasCreated && e.metrics != nil {
		e.metrics.RequestsSubmitted.WithLabelValues(string(resource.Kind)).Inc()
	}
	return created, nil
}

// Resolve applies a terminal decision to a pending request. Only a hub
// leader or supervisor of the owning hub, or a platform admin, may resolve.
// Approval creates the membership in the same store transaction; both
// outcomes are irreversible through this engine.
func (e *Engine) Resolve(ctx context.Context, resolver *access.Principal, requestID uuid.UUID, decision Decision, message string) (*access.JoinRequest, error) {
	req, err := e.resolve(ctx, resolver, requestID, decision, message)
	e.reportResolve(ctx, resolver, requestID, decision, err)
	return req, err
}

func (e *Engine) resolve(ctx context.Context, resolver *access.Principal, requestID uuid.UUID, decision Decision, message string) (*access.JoinRequest, error) {
	if resolver == nil {
		return nil, access.NewError(access.KindUnauthenticated, "resolving requires an authenticated principal")
	}

	var state access.RequestState
	switch decision {
	case DecisionApprove:
		state = access.StateApproved
	case DecisionReject:
		state = access.StateRejected
	default:
		return nil, access.NewError(access.KindInvalidState, "unknown decision %q", decision)
	}

	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	// Terminal requests stay terminal; re-resolving is rejected rather
	// than silently accepted.
	if req.State != access.StatePending {
		return nil, access.NewError(access.KindInvalidState, "join request %s is already %s", requestID, req.State)
	}

	resource, err := e.catalog.Resource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}

	allowed, err := e.canResolve(ctx, resolver, resource)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, access.NewError(access.KindForbidden, "principal may not resolve requests for hub %s", resource.HubID)
	}

	resolved, err := e.store.Resolve(ctx, requestID, state, resolver.ID, message, e.now().UTC())
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RequestsResolved.WithLabelValues(string(decision)).Inc()
	}
	return resolved, nil
}

func (e *Engine) canResolve(ctx context.Context, resolver *access.Principal, resource *access.Resource) (bool, error) {
	role, err := e.roles.RoleOf(ctx, resolver.ID, resource.HubID)
	if err != nil {
		return false, err
	}
	if role.Manages() {
		return true, nil
	}
	return e.roles.IsPlatformAdmin(ctx, resolver.ID)
}

// CancelRequest withdraws the principal's own pending request.
func (e *Engine) CancelRequest(ctx context.Context, principal *access.Principal, requestID uuid.UUID) (*access.JoinRequest, error) {
	if principal == nil {
		return nil, access.NewError(access.KindUnauthenticated, "cancelling requires an authenticated principal")
	}

	req, err := e.store.Cancel(ctx, requestID, principal.ID, e.now().UTC())
	e.report(ctx, audit.ActionRequestCancel, &principal.ID, audit.EntityJoinRequest, requestID, "", err)
	return req, err
}

// CanView reports whether the principal may view the resource identified by
// resourceID.
func (e *Engine) CanView(ctx context.Context, principal *access.Principal, resourceID uuid.UUID) (bool, error) {
	resource, err := e.catalog.Resource(ctx, resourceID)
	if err != nil {
		return false, err
	}
	visible, err := e.visibility.CanView(ctx, principal, resource)
	if err == nil && e.metrics != nil {
		label := "false"
		if visible {
			label = "true"
		}
		e.metrics.VisibilityChecks.WithLabelValues(label).Inc()
	}
	return visible, err
}

// ActiveMembership returns the principal's active membership in the
// resource, or nil when none exists.
func (e *Engine) ActiveMembership(ctx context.Context, principal *access.Principal, resourceID uuid.UUID) (*access.Membership, error) {
	if principal == nil {
		return nil, nil
	}
	return e.registry.ActiveMembership(ctx, principal.ID, resourceID)
}

// MembershipsForPrincipal returns the principal's active memberships.
func (e *Engine) MembershipsForPrincipal(ctx context.Context, principal *access.Principal) ([]*access.Membership, error) {
	if principal == nil {
		return nil, access.NewError(access.KindUnauthenticated, "listing memberships requires an authenticated principal")
	}
	return e.registry.MembershipsForPrincipal(ctx, principal.ID)
}

// PendingRequestsForHub returns the hub's pending requests for review
// screens.
func (e *Engine) PendingRequestsForHub(ctx context.Context, hubID uuid.UUID) ([]*access.PendingReview, error) {
	return e.store.PendingForHub(ctx, hubID)
}

func (e *Engine) reportRequest(ctx context.Context, principal *access.Principal, resource *access.Resource, req *access.JoinRequest, err error) {
	var actorID *uuid.UUID
	if principal != nil {
		actorID = &principal.ID
	}
	entityType := audit.EntityResource
	entityID := resource.ID
	if req != nil {
		entityType = audit.EntityJoinRequest
		entityID = req.ID
	}
	e.report(ctx, audit.ActionRequestSubmit, actorID, entityType, entityID, "", err)

	if err != nil && e.metrics != nil {
		e.metrics.RequestsDenied.WithLabelValues(string(access.KindOf(err))).Inc()
	}
}

func (e *Engine) reportResolve(ctx context.Context, resolver *access.Principal, requestID uuid.UUID, decision Decision, err error) {
	var actorID *uuid.UUID
	if resolver != nil {
		actorID = &resolver.ID
	}
	action := audit.ActionRequestApprove
	if decision == DecisionReject {
		action = audit.ActionRequestReject
	}
	e.report(ctx, action, actorID, audit.EntityJoinRequest, requestID, "", err)
}

// report writes one audit event for an operation outcome. Audit failures
// are logged but never fail the operation.
func (e *Engine) report(ctx context.Context, action audit.Action, actorID *uuid.UUID, entityType audit.EntityType, entityID uuid.UUID, detail string, opErr error) {
	status := audit.StatusSuccess
	if opErr != nil {
		status = audit.StatusDenied
		if access.KindOf(opErr) == access.KindTransient {
			status = audit.StatusFailure
		}
		if detail == "" {
			detail = opErr.Error()
		}
	}

	event := &audit.Event{
		Timestamp:  e.now().UTC(),
		Action:     action,
		Status:     status,
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	}
	if err := e.audit.Log(ctx, event); err != nil {
		e.logger.WithError(err).Warn("failed to write audit event")
	}
}
