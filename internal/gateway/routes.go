package gateway

import (
	"errors"
	"net/http"

	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/session"
)

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /session/start", s.handleSessionStart)
	mux.HandleFunc("POST /session/{id}/message", s.handleSessionMessage)
	mux.HandleFunc("GET /session/{id}", s.handleSessionGet)
	mux.HandleFunc("GET /session/{id}/trace", s.handleSessionTrace)
	mux.HandleFunc("GET /session/{id}/summary", s.handleSessionSummary)

	// Management surface and the live feed require the token.
	mux.HandleFunc("POST /mas/update", s.requireToken(s.handleRuleCreate))
	mux.HandleFunc("GET /mas/rules", s.requireToken(s.handleRuleList))
	mux.HandleFunc("DELETE /mas/rules/{id}", s.requireToken(s.handleRuleDelete))
	mux.HandleFunc("GET /ws", s.requireToken(s.handleTraceFeed))

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

type sessionStartRequest struct {
	CustomerEmail     string `json:"customerEmail"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	ShopifyCustomerID string `json:"shopifyCustomerId"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CustomerEmail == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "customerEmail is required")
		return
	}

	sess, err := s.orch.StartSession(domain.Customer{
		Email:             req.CustomerEmail,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		ShopifyCustomerID: req.ShopifyCustomerID,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sess.ID})
}

type sessionMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	var req sessionMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "message is required")
		return
	}

	result, err := s.orch.Process(r.Context(), r.PathValue("id"), req.Message)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.Session(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionTrace(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.orch.Session(id); err != nil {
		writeStoreError(w, err)
		return
	}

	events, _ := s.orch.Trace(id)
	if events == nil {
		events = []domain.TraceEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.orch.Summary(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeStoreError(w, err)
			return
		}
		writeError(w, http.StatusNotFound, "not_escalated", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type ruleCreateRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleRuleCreate(w http.ResponseWriter, r *http.Request) {
	var req ruleCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "prompt is required")
		return
	}

	rule, err := s.orch.Rules().Add(req.Prompt)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.log.Info().Str("ruleId", rule.ID).Str("action", string(rule.Action.Type)).Msg("rule created")
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleRuleList(w http.ResponseWriter, r *http.Request) {
	list := s.orch.Rules().List()
	if list == nil {
		list = []domain.DynamicRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": list})
}

func (s *Server) handleRuleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.orch.Rules().Deactivate(id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.log.Info().Str("ruleId", id).Msg("rule deactivated")
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": false})
}
