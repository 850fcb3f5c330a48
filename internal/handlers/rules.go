package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/routing"
	"ticketrouter/internal/rules"
)

type createRuleRequest struct {
	Name       string                     `json:"name"`
	Priority   *int                       `json:"priority,omitempty"`
	Conditions []routing.RoutingCondition `json:"conditions"`
	Action     routing.RoutingAction      `json:"action"`
}

type createFromTemplateRequest struct {
	TemplateID string            `json:"template_id"`
	Overrides  *rules.RuleUpdate `json:"overrides,omitempty"`
}

// CreateRule creates a custom routing rule after validating it.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	priority := -1
	if req.Priority != nil {
		priority = *req.Priority
	}

	candidate := &routing.RoutingRule{
		Name:       req.Name,
		Priority:   priority,
		IsActive:   true,
		Conditions: req.Conditions,
		Action:     req.Action,
	}
	if priority < 0 {
		candidate.Priority = rules.DefaultPriority
	}
	if result := rules.ValidateRule(candidate); !result.Valid {
		h.writeJSON(w, http.StatusBadRequest, result)
		return
	}

	rule, err := h.rules.CreateCustomRule(r.Context(), req.Name, req.Conditions, req.Action, priority)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.router.ClearCache()
	h.writeJSON(w, http.StatusCreated, rule)
}

// CreateRuleFromTemplate instantiates a rule from the template catalog.
func (h *Handler) CreateRuleFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req createFromTemplateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	rule, err := h.rules.CreateRuleFromTemplate(r.Context(), req.TemplateID, req.Overrides)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rule == nil {
		h.writeError(w, errors.NotFoundError("rule template"))
		return
	}

	h.router.ClearCache()
	h.writeJSON(w, http.StatusCreated, rule)
}

// ListRules lists rules, filtered to active ones with ?active=true.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	list, err := h.rules.GetAllRules(r.Context(), activeOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"rules": list, "count": len(list)})
}

// GetRule returns one rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["id"]

	rule, err := h.rules.GetRule(r.Context(), ruleID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rule == nil {
		h.writeError(w, errors.NotFoundError("rule"))
		return
	}
	h.writeJSON(w, http.StatusOK, rule)
}

// UpdateRule applies a partial update to a rule.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["id"]

	var update rules.RuleUpdate
	if !h.decodeBody(w, r, &update) {
		return
	}

	rule, err := h.rules.UpdateRule(r.Context(), ruleID, &update)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rule == nil {
		h.writeError(w, errors.NotFoundError("rule"))
		return
	}

	h.router.ClearCache()
	h.writeJSON(w, http.StatusOK, rule)
}

// DeleteRule removes a rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["id"]

	removed, err := h.rules.DeleteRule(r.Context(), ruleID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !removed {
		h.writeError(w, errors.NotFoundError("rule"))
		return
	}

	h.router.ClearCache()
	h.writeJSON(w, http.StatusNoContent, nil)
}

// ListTemplates returns the rule template catalog.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := rules.Templates()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates, "count": len(templates)})
}

// ValidateRule checks a rule definition without persisting it.
func (h *Handler) ValidateRule(w http.ResponseWriter, r *http.Request) {
	var rule routing.RoutingRule
	if !h.decodeBody(w, r, &rule) {
		return
	}
	h.writeJSON(w, http.StatusOK, rules.ValidateRule(&rule))
}
