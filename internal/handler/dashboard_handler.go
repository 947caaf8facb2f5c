package handler

import (
	"net/http"

	"medwise-api/internal/middleware"
)

type ticketRequest struct {
	IssueType   string `json:"issueType"`
	Description string `json:"description"`
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	s, err := h.dashboard.Summary(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s, h.logger)
}

func (h *Handler) OpenTicket(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	var req ticketRequest
	if !h.decode(w, r, &req) {
		return
	}
	tk, err := h.support.Open(r.Context(), id, req.IssueType, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("support ticket opened", "ticket_id", tk.ID, "issue_type", tk.IssueType, "user_id", id.UserID)
	respondWithJSON(w, http.StatusAccepted, map[string]any{"success": true, "id": tk.ID}, h.logger)
}

// Stream upgrades to a websocket carrying appointment events for the caller.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	if err := h.hub.Serve(w, r, id); err != nil {
		// the upgrader has already answered the client
		h.logger.Warn("websocket upgrade failed", "user_id", id.UserID, "error", err)
	}
}
