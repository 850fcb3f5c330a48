// Package handlers implements the HTTP API: rule management, ticket routing,
// assignment, and health.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/common/cache"
	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/common/logging"
	"ticketrouter/internal/routing"
	"ticketrouter/internal/rules"
	"ticketrouter/internal/storage"
)

// Handler bundles the service dependencies behind the HTTP surface.
type Handler struct {
	rules           *rules.Manager
	router          *routing.Engine
	assigner        *assignment.Engine
	store           storage.Storage
	sharedCache     cache.Cache
	defaultStrategy assignment.StrategyType
	logger          logging.Logger
}

// New creates the HTTP handler set.
func New(ruleManager *rules.Manager, router *routing.Engine, assigner *assignment.Engine, store storage.Storage, sharedCache cache.Cache, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handler{
		rules:       ruleManager,
		router:      router,
		assigner:    assigner,
		store:       store,
		sharedCache: sharedCache,
		logger:      logger,
	}
}

// WithDefaultStrategy sets the strategy used when assignment requests omit
// one. An empty value keeps the engine default.
func (h *Handler) WithDefaultStrategy(strategy assignment.StrategyType) *Handler {
	h.defaultStrategy = strategy
	return h
}

// RegisterRoutes attaches all endpoints to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/rules", h.CreateRule).Methods(http.MethodPost)
	api.HandleFunc("/rules", h.ListRules).Methods(http.MethodGet)
	api.HandleFunc("/rules/from-template", h.CreateRuleFromTemplate).Methods(http.MethodPost)
	api.HandleFunc("/rules/validate", h.ValidateRule).Methods(http.MethodPost)
	api.HandleFunc("/rules/{id}", h.GetRule).Methods(http.MethodGet)
	api.HandleFunc("/rules/{id}", h.UpdateRule).Methods(http.MethodPatch)
	api.HandleFunc("/rules/{id}", h.DeleteRule).Methods(http.MethodDelete)
	api.HandleFunc("/rule-templates", h.ListTemplates).Methods(http.MethodGet)

	api.HandleFunc("/routing/route", h.RouteTicket).Methods(http.MethodPost)
	api.HandleFunc("/routing/feedback", h.RecordFeedback).Methods(http.MethodPost)

	api.HandleFunc("/assignment/assign", h.AssignTicket).Methods(http.MethodPost)
	api.HandleFunc("/teams/{teamID}/workload", h.TeamWorkload).Methods(http.MethodGet)
	api.HandleFunc("/teams/{teamID}/members", h.UpsertTeamMember).Methods(http.MethodPut)
}

// Health reports service and storage health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.store.Health(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		h.logger.Error("storage health check failed", err)
	}
	h.writeJSON(w, code, map[string]string{"status": status})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch errors.GetType(err) {
	case errors.ErrTypeValidation:
		code = http.StatusBadRequest
	case errors.ErrTypeNotFound:
		code = http.StatusNotFound
	case errors.ErrTypeUnavailable, errors.ErrTypeConnection:
		code = http.StatusServiceUnavailable
	case errors.ErrTypeTimeout:
		code = http.StatusGatewayTimeout
	}

	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", err)
	}
	h.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, errors.ValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}
