package api

import (
	"encoding/json"
	"net/http"

	"github.com/campushub/hubaccess/pkg/access"
	"github.com/campushub/hubaccess/pkg/workflow"
)

// canViewResponse is the response body for visibility checks
type canViewResponse struct {
	Visible bool `json:"visible"`
}

// canView handles GET /api/v1/resources/{id}/visibility
func (s *Server) canView(w http.ResponseWriter, r *http.Request) {
	resourceID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	principal, err := principalFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	visible, err := s.engine.CanView(r.Context(), principal, resourceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, canViewResponse{Visible: visible})
}

// requestBody is the request body for join request submission
type requestBody struct {
	Message string `json:"message,omitempty"`
}

// request handles POST /api/v1/resources/{id}/requests
func (s *Server) request(w http.ResponseWriter, r *http.Request) {
	resourceID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	principal, err := principalFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body requestBody
	if r.Body != nil {
		// An empty body is a request with no message.
		json.NewDecoder(r.Body).Decode(&body)
	}

	req, err := s.engine.Request(r.Context(), principal, resourceID, body.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// resolveBody is the request body for resolving a join request
type resolveBody struct {
	Decision workflow.Decision `json:"decision"`
	Message  string            `json:"message,omitempty"`
}

// resolve handles POST /api/v1/requests/{id}/resolve
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resolver, err := principalFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body resolveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, access.NewError(access.KindInvalidState, "invalid request body"))
		return
	}

	req, err := s.engine.Resolve(r.Context(), resolver, requestID, body.Decision, body.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// cancel handles POST /api/v1/requests/{id}/cancel
func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	principal, err := principalFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	req, err := s.engine.CancelRequest(r.Context(), principal, requestID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// activeMembership handles GET /api/v1/resources/{id}/membership
func (s *Server) activeMembership(w http.ResponseWriter, r *http.Request) {
	resourceID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	principal, err := principalFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	m, err := s.engine.ActiveMembership(r.Context(), principal, resourceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Kind: access.KindNotFound, Message: "no active membership"})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// memberships handles GET /api/v1/memberships
func (s *Server) memberships(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.engine.MembershipsForPrincipal(r.Context(), principal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*access.Membership{}
	}
	writeJSON(w, http.StatusOK, list)
}

// pendingForHub handles GET /api/v1/hubs/{id}/requests
func (s *Server) pendingForHub(w http.ResponseWriter, r *http.Request) {
	hubID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	reviews, err := s.engine.PendingRequestsForHub(r.Context(), hubID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []*access.PendingReview{}
	}
	writeJSON(w, http.StatusOK, reviews)
}
