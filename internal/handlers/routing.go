package handlers

import (
	"net/http"

	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/routing"
)

type routeRequest struct {
	Ticket  routing.Ticket `json:"ticket"`
	Content string         `json:"content"`
}

type feedbackRequest struct {
	RuleID       string `json:"rule_id"`
	TicketID     string `json:"ticket_id"`
	WasCorrect   bool   `json:"was_correct"`
	ActualTeamID string `json:"actual_team_id,omitempty"`
}

// RouteTicket evaluates the routing rules against a ticket and returns the
// suggestion. The endpoint always answers 200: degraded evaluation is
// reported in the result's outcome, not as an HTTP error.
func (h *Handler) RouteTicket(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Ticket.ID == "" {
		h.writeError(w, errors.ValidationError("ticket.id is required"))
		return
	}

	result := h.router.RouteTicket(r.Context(), &req.Ticket, req.Content)
	h.writeJSON(w, http.StatusOK, result)
}

// RecordFeedback records whether a routing decision was correct.
func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.RuleID == "" || req.TicketID == "" {
		h.writeError(w, errors.ValidationError("rule_id and ticket_id are required"))
		return
	}

	if err := h.router.RecordFeedback(r.Context(), req.RuleID, req.TicketID, req.WasCorrect, req.ActualTeamID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}
