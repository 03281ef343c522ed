package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/hubaccess/pkg/access"
	"github.com/campushub/hubaccess/pkg/workflow"
)

// stubEngine returns canned results per method
type stubEngine struct {
	canView        bool
	canViewErr     error
	request        *access.JoinRequest
	requestErr     error
	resolve        *access.JoinRequest
	resolveErr     error
	cancel         *access.JoinRequest
	cancelErr      error
	membership     *access.Membership
	membershipErr  error
	memberships    []*access.Membership
	membershipsErr error
	reviews        []*access.PendingReview
	reviewsErr     error

	lastPrincipal *access.Principal
	lastDecision  workflow.Decision
	lastMessage   string
}

func (e *stubEngine) CanView(ctx context.Context, principal *access.Principal, resourceID uuid.UUID) (bool, error) {
	e.lastPrincipal = principal
	return e.canView, e.canViewErr
}

func (e *stubEngine) Request(ctx context.Context, principal *access.Principal, resourceID uuid.UUID, message string) (*access.JoinRequest, error) {
	e.lastPrincipal = principal
	e.lastMessage = message
	return e.request, e.requestErr
}

func (e *stubEngine) Resolve(ctx context.Context, resolver *access.Principal, requestID uuid.UUID, decision workflow.Decision, message string) (*access.JoinRequest, error) {
	e.lastPrincipal = resolver
	e.lastDecision = decision
	e.lastMessage = message
	return e.resolve, e.resolveErr
}

func (e *stubEngine) CancelRequest(ctx context.Context, principal *access.Principal, requestID uuid.UUID) (*access.JoinRequest, error) {
	e.lastPrincipal = principal
	return e.cancel, e.cancelErr
}

func (e *stubEngine) ActiveMembership(ctx context.Context, principal *access.Principal, resourceID uuid.UUID) (*access.Membership, error) {
	return e.membership, e.membershipErr
}

func (e *stubEngine) MembershipsForPrincipal(ctx context.Context, principal *access.Principal) ([]*access.Membership, error) {
	return e.memberships, e.membershipsErr
}

func (e *stubEngine) PendingRequestsForHub(ctx context.Context, hubID uuid.UUID) ([]*access.PendingReview, error) {
	return e.reviews, e.reviewsErr
}

func doRequest(t *testing.T, engine *stubEngine, method, path string, principalID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if principalID != "" {
		req.Header.Set("X-Principal-ID", principalID)
	}

	rec := httptest.NewRecorder()
	NewServer(engine, nil).ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, &stubEngine{}, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCanViewHandler(t *testing.T) {
	resourceID := uuid.New()

	t.Run("anonymous caller is passed through as nil principal", func(t *testing.T) {
		engine := &stubEngine{canView: true}
		rec := doRequest(t, engine, "GET", "/api/v1/resources/"+resourceID.String()+"/visibility", "", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, engine.lastPrincipal)

		var body canViewResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Visible)
	})

	t.Run("malformed principal header is unauthorized", func(t *testing.T) {
		rec := doRequest(t, &stubEngine{}, "GET", "/api/v1/resources/"+resourceID.String()+"/visibility", "not-a-uuid", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed resource id is not found", func(t *testing.T) {
		rec := doRequest(t, &stubEngine{}, "GET", "/api/v1/resources/junk/visibility", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRequestHandler(t *testing.T) {
	resourceID := uuid.New()
	principalID := uuid.New()
	path := "/api/v1/resources/" + resourceID.String() + "/requests"

	t.Run("created", func(t *testing.T) {
		engine := &stubEngine{request: &access.JoinRequest{ID: uuid.New(), State: access.StatePending}}
		rec := doRequest(t, engine, "POST", path, principalID.String(), requestBody{Message: "let me in"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, engine.lastPrincipal)
		assert.Equal(t, principalID, engine.lastPrincipal.ID)
		assert.Equal(t, "let me in", engine.lastMessage)
	})

	t.Run("empty body is a request with no message", func(t *testing.T) {
		engine := &stubEngine{request: &access.JoinRequest{ID: uuid.New(), State: access.StatePending}}
		rec := doRequest(t, engine, "POST", path, principalID.String(), nil)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Empty(t, engine.lastMessage)
	})
}

func TestErrorStatusMapping(t *testing.T) {
	resourceID := uuid.New()
	principalID := uuid.New()
	path := "/api/v1/resources/" + resourceID.String() + "/requests"

	cases := []struct {
		kind   access.Kind
		status int
	}{
		{access.KindUnauthenticated, http.StatusUnauthorized},
		{access.KindForbidden, http.StatusForbidden},
		{access.KindAlreadyManaging, http.StatusForbidden},
		{access.KindNotFound, http.StatusNotFound},
		{access.KindAlreadyMember, http.StatusConflict},
		{access.KindInvalidState, http.StatusConflict},
		{access.KindCapacityExceeded, http.StatusConflict},
		{access.KindWindowClosed, http.StatusConflict},
		{access.KindNotEligible, http.StatusUnprocessableEntity},
		{access.KindTransient, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			engine := &stubEngine{requestErr: access.NewError(tc.kind, "nope")}
			rec := doRequest(t, engine, "POST", path, principalID.String(), nil)

			assert.Equal(t, tc.status, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.kind, body.Kind)
		})
	}
}

func TestResolveHandler(t *testing.T) {
	requestID := uuid.New()
	resolverID := uuid.New()
	path := "/api/v1/requests/" + requestID.String() + "/resolve"

	t.Run("approve", func(t *testing.T) {
		engine := &stubEngine{resolve: &access.JoinRequest{ID: requestID, State: access.StateApproved}}
		rec := doRequest(t, engine, "POST", path, resolverID.String(), resolveBody{Decision: workflow.DecisionApprove, Message: "welcome"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, workflow.DecisionApprove, engine.lastDecision)
		assert.Equal(t, "welcome", engine.lastMessage)
	})

	t.Run("missing body is rejected", func(t *testing.T) {
		rec := doRequest(t, &stubEngine{}, "POST", path, resolverID.String(), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestCancelHandler(t *testing.T) {
	requestID := uuid.New()
	principalID := uuid.New()

	engine := &stubEngine{cancel: &access.JoinRequest{ID: requestID, State: access.StateCancelled}}
	rec := doRequest(t, engine, "POST", "/api/v1/requests/"+requestID.String()+"/cancel", principalID.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body access.JoinRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, access.StateCancelled, body.State)
}

func TestActiveMembershipHandler(t *testing.T) {
	resourceID := uuid.New()
	principalID := uuid.New()
	path := "/api/v1/resources/" + resourceID.String() + "/membership"

	t.Run("found", func(t *testing.T) {
		engine := &stubEngine{membership: &access.Membership{ID: uuid.New(), Role: access.MemberRoleMember}}
		rec := doRequest(t, engine, "GET", path, principalID.String(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no active membership is 404", func(t *testing.T) {
		rec := doRequest(t, &stubEngine{}, "GET", path, principalID.String(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMembershipsHandler(t *testing.T) {
	principalID := uuid.New()

	t.Run("empty list encodes as an array", func(t *testing.T) {
		rec := doRequest(t, &stubEngine{}, "GET", "/api/v1/memberships", principalID.String(), nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})

	t.Run("anonymous caller is unauthorized", func(t *testing.T) {
		engine := &stubEngine{membershipsErr: access.NewError(access.KindUnauthenticated, "who are you")}
		rec := doRequest(t, engine, "GET", "/api/v1/memberships", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPendingForHubHandler(t *testing.T) {
	hubID := uuid.New()

	engine := &stubEngine{reviews: []*access.PendingReview{
		{Request: access.JoinRequest{ID: uuid.New(), State: access.StatePending}, ResourceKind: access.KindProject, HubID: hubID},
	}}
	rec := doRequest(t, engine, "GET", "/api/v1/hubs/"+hubID.String()+"/requests", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var reviews []*access.PendingReview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviews))
	require.Len(t, reviews, 1)
	assert.Equal(t, access.KindProject, reviews[0].ResourceKind)
}
