package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/hubaccess/pkg/access"
	"github.com/campushub/hubaccess/pkg/audit"
)

// memDirectory serves hub roles and admin flags from maps
type memDirectory struct {
	roles  map[[2]uuid.UUID]access.HubRole
	admins map[uuid.UUID]bool
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		roles:  map[[2]uuid.UUID]access.HubRole{},
		admins: map[uuid.UUID]bool{},
	}
}

func (d *memDirectory) RoleOf(ctx context.Context, principalID, hubID uuid.UUID) (access.HubRole, error) {
	if role, ok := d.roles[[2]uuid.UUID{principalID, hubID}]; ok {
		return role, nil
	}
	return access.RoleNone, nil
}

func (d *memDirectory) IsPlatformAdmin(ctx context.Context, principalID uuid.UUID) (bool, error) {
	return d.admins[principalID], nil
}

// memRegistry is an in-memory membership registry
type memRegistry struct {
	mu          sync.Mutex
	memberships map[[2]uuid.UUID]*access.Membership
}

func newMemRegistry() *memRegistry {
	return &memRegistry{memberships: map[[2]uuid.UUID]*access.Membership{}}
}

func (r *memRegistry) ActiveMembership(ctx context.Context, principalID, resourceID uuid.UUID) (*access.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.memberships[[2]uuid.UUID{principalID, resourceID}]
	if m == nil || !m.Active() {
		return nil, nil
	}
	return m, nil
}

func (r *memRegistry) CreateMembership(ctx context.Context, principalID, resourceID uuid.UUID, role access.MemberRole) (*access.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]uuid.UUID{principalID, resourceID}
	if existing := r.memberships[key]; existing != nil && existing.Active() {
		return existing, nil
	}
	m := &access.Membership{
		ID:          uuid.New(),
		PrincipalID: principalID,
		ResourceID:  resourceID,
		Role:        role,
		CreatedAt:   time.Now(),
	}
	r.memberships[key] = m
	return m, nil
}

func (r *memRegistry) CountActive(ctx context.Context, resourceID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for key, m := range r.memberships {
		if key[1] == resourceID && m.Active() {
			count++
		}
	}
	return count, nil
}

func (r *memRegistry) MembershipsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]*access.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*access.Membership
	for key, m := range r.memberships {
		if key[0] == principalID && m.Active() {
			out = append(out, m)
		}
	}
	return out, nil
}

// memCatalog serves resources from a map
type memCatalog struct {
	resources map[uuid.UUID]*access.Resource
}

func newMemCatalog(resources ...*access.Resource) *memCatalog {
	c := &memCatalog{resources: map[uuid.UUID]*access.Resource{}}
	for _, r := range resources {
		c.resources[r.ID] = r
	}
	return c
}

func (c *memCatalog) Resource(ctx context.Context, id uuid.UUID) (*access.Resource, error) {
	if r, ok := c.resources[id]; ok {
		return r, nil
	}
	return nil, access.NewError(access.KindNotFound, "resource %s not found", id)
}

// memStore is an in-memory join request store. Approval creates the
// membership through the registry, mirroring the Postgres store's
// transaction.
type memStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*access.JoinRequest
	registry *memRegistry
	catalog  *memCatalog
}

func newMemStore(registry *memRegistry, catalog *memCatalog) *memStore {
	return &memStore{
		requests: map[uuid.UUID]*access.JoinRequest{},
		registry: registry,
		catalog:  catalog,
	}
}

func (s *memStore) Get(ctx context.Context, id uuid.UUID) (*access.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, access.NewError(access.KindNotFound, "join request %s not found", id)
	}
	copied := *req
	return &copied, nil
}

func (s *memStore) PendingFor(ctx context.Context, principalID, resourceID uuid.UUID) (*access.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingForLocked(principalID, resourceID), nil
}

func (s *memStore) pendingForLocked(principalID, resourceID uuid.UUID) *access.JoinRequest {
	for _, req := range s.requests {
		if req.PrincipalID == principalID && req.ResourceID == resourceID && req.State == access.StatePending {
			copied := *req
			return &copied
		}
	}
	return nil
}

func (s *memStore) Create(ctx context.Context, req *access.JoinRequest) (*access.JoinRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.pendingForLocked(req.PrincipalID, req.ResourceID); existing != nil {
		return existing, false, nil
	}
	copied := *req
	s.requests[req.ID] = &copied
	out := copied
	return &out, true, nil
}

func (s *memStore) Resolve(ctx context.Context, id uuid.UUID, state access.RequestState, resolverID uuid.UUID, message string, at time.Time) (*access.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, access.NewError(access.KindNotFound, "join request %s not found", id)
	}
	if req.State != access.StatePending {
		return nil, access.NewError(access.KindInvalidState, "join request %s is already %s", id, req.State)
	}
	req.State = state
	req.ResolvedAt = &at
	req.ResolvedBy = &resolverID
	req.ResponseMessage = message
	if state == access.StateApproved {
		if _, err := s.registry.CreateMembership(ctx, req.PrincipalID, req.ResourceID, access.MemberRoleMember); err != nil {
			return nil, err
		}
	}
	copied := *req
	return &copied, nil
}

func (s *memStore) Cancel(ctx context.Context, id, principalID uuid.UUID, at time.Time) (*access.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, access.NewError(access.KindNotFound, "join request %s not found", id)
	}
	if req.PrincipalID != principalID {
		return nil, access.NewError(access.KindForbidden, "only the requester may cancel a join request")
	}
	if req.State != access.StatePending {
		return nil, access.NewError(access.KindInvalidState, "join request %s is already %s", id, req.State)
	}
	req.State = access.StateCancelled
	req.ResolvedAt = &at
	copied := *req
	return &copied, nil
}

func (s *memStore) PendingForHub(ctx context.Context, hubID uuid.UUID) ([]*access.PendingReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reviews []*access.PendingReview
	for _, req := range s.requests {
		if req.State != access.StatePending {
			continue
		}
		resource, ok := s.catalog.resources[req.ResourceID]
		if !ok || resource.HubID != hubID {
			continue
		}
		reviews = append(reviews, &access.PendingReview{
			Request:      *req,
			ResourceKind: resource.Kind,
			HubID:        resource.HubID,
		})
	}
	return reviews, nil
}

func (s *memStore) CountPending(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, req := range s.requests {
		if req.State == access.StatePending {
			count++
		}
	}
	return count, nil
}

// recordingAudit captures audit events for assertions
type recordingAudit struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (r *recordingAudit) Log(ctx context.Context, event *audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAudit) Close() error { return nil }

func (r *recordingAudit) byAction(action audit.Action) []*audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*audit.Event
	for _, e := range r.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
