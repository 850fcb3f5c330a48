package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/common/errors"
)

type assignRequest struct {
	TeamID         string              `json:"team_id"`
	TicketID       string              `json:"ticket_id"`
	Strategy       assignment.Strategy `json:"strategy"`
	RequiredSkills []string            `json:"required_skills,omitempty"`
}

type upsertMemberRequest struct {
	Member  assignment.TeamMember        `json:"member"`
	Metrics assignment.TeamMemberMetrics `json:"metrics"`
}

// AssignTicket picks an assignee from the team's pool. Like routing, the
// endpoint always answers 200 and reports degradation in the result outcome.
func (h *Handler) AssignTicket(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.TeamID == "" || req.TicketID == "" {
		h.writeError(w, errors.ValidationError("team_id and ticket_id are required"))
		return
	}
	if req.Strategy.Type == "" && h.defaultStrategy != "" {
		req.Strategy.Type = h.defaultStrategy
	}

	result := h.assigner.AssignTicket(r.Context(), req.TeamID, req.TicketID, req.Strategy, req.RequiredSkills)
	h.writeJSON(w, http.StatusOK, result)
}

// TeamWorkload returns aggregated workload statistics for a team. The shared
// cache, populated by the metrics prewarm job, is consulted first so that
// repeated dashboard polls do not hit the database.
func (h *Handler) TeamWorkload(w http.ResponseWriter, r *http.Request) {
	teamID := mux.Vars(r)["teamID"]

	if h.sharedCache != nil {
		if cached, ok := h.sharedCache.Get(r.Context(), assignment.WorkloadCacheKey(teamID)); ok {
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	stats, err := h.assigner.GetTeamWorkloadStats(r.Context(), teamID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// UpsertTeamMember creates or replaces a team member with its workload
// snapshot, then drops the assignment cache so the change is visible.
func (h *Handler) UpsertTeamMember(w http.ResponseWriter, r *http.Request) {
	teamID := mux.Vars(r)["teamID"]

	var req upsertMemberRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Member.UserID == "" {
		h.writeError(w, errors.ValidationError("member.user_id is required"))
		return
	}

	if err := h.store.UpsertTeamMember(r.Context(), teamID, req.Member, req.Metrics); err != nil {
		h.writeError(w, err)
		return
	}

	h.assigner.ClearCache()
	h.writeJSON(w, http.StatusOK, req.Member)
}
