// Package api exposes the access engine to the presentation layer over
// HTTP. It renders nothing itself; the portal maps the machine-readable
// error kinds to user-facing messaging.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/campushub/hubaccess/pkg/access"
	"github.com/campushub/hubaccess/pkg/workflow"
)

// Engine is the access engine surface the handlers call. Satisfied by
// *workflow.Engine.
type Engine interface {
	CanView(ctx context.Context, principal *access.Principal, resourceID uuid.UUID) (bool, error)
	Request(ctx context.Context, principal *access.Principal, resourceID uuid.UUID, message string) (*access.JoinRequest, error)
	Resolve(ctx context.Context, resolver *access.Principal, requestID uuid.UUID, decision workflow.Decision, message string) (*access.JoinRequest, error)
	CancelRequest(ctx context.Context, principal *access.Principal, requestID uuid.UUID) (*access.JoinRequest, error)
	ActiveMembership(ctx context.Context, principal *access.Principal, resourceID uuid.UUID) (*access.Membership, error)
	MembershipsForPrincipal(ctx context.Context, principal *access.Principal) ([]*access.Membership, error)
	PendingRequestsForHub(ctx context.Context, hubID uuid.UUID) ([]*access.PendingReview, error)
}

// Server handles the engine's HTTP API
type Server struct {
	router *mux.Router
	engine Engine
	logger *logrus.Logger
}

// NewServer creates an API server around the engine.
func NewServer(engine Engine, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Server{
		router: mux.NewRouter(),
		engine: engine,
		logger: logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.health).Methods("GET")

	s.router.HandleFunc("/api/v1/resources/{id}/visibility", s.canView).Methods("GET")
	s.router.HandleFunc("/api/v1/resources/{id}/requests", s.request).Methods("POST")
	s.router.HandleFunc("/api/v1/resources/{id}/membership", s.activeMembership).Methods("GET")
	s.router.HandleFunc("/api/v1/requests/{id}/resolve", s.resolve).Methods("POST")
	s.router.HandleFunc("/api/v1/requests/{id}/cancel", s.cancel).Methods("POST")
	s.router.HandleFunc("/api/v1/hubs/{id}/requests", s.pendingForHub).Methods("GET")
	s.router.HandleFunc("/api/v1/memberships", s.memberships).Methods("GET")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// principalFrom extracts the authenticated principal from the request. The
// portal's gateway authenticates the session and forwards the identity in
// the X-Principal-ID header; absence means an anonymous caller.
func principalFrom(r *http.Request) (*access.Principal, error) {
	raw := r.Header.Get("X-Principal-ID")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, access.NewError(access.KindUnauthenticated, "invalid principal id %q", raw)
	}
	return &access.Principal{ID: id}, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, access.NewError(access.KindNotFound, "invalid id %q", raw)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorResponse is the machine-readable error body
type errorResponse struct {
	Kind    access.Kind `json:"kind"`
	Message string      `json:"message"`
}

// writeError maps an engine error kind to an HTTP status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := access.KindOf(err)

	var status int
	switch kind {
	case access.KindUnauthenticated:
		status = http.StatusUnauthorized
	case access.KindForbidden, access.KindAlreadyManaging:
		status = http.StatusForbidden
	case access.KindNotFound:
		status = http.StatusNotFound
	case access.KindAlreadyMember, access.KindInvalidState, access.KindCapacityExceeded, access.KindWindowClosed:
		status = http.StatusConflict
	case access.KindNotEligible:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusServiceUnavailable
		s.logger.WithError(err).Errorf("request failed: %s %s", r.Method, r.URL.Path)
	}

	writeJSON(w, status, errorResponse{Kind: kind, Message: err.Error()})
}
