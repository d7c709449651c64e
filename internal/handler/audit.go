package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/maisonoak/storefront/internal/domain/audit"
)

type auditEntryDTO struct {
	ID        string          `json:"id"`
	ActorID   string          `json:"actorId"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entityId"`
	Before    json.RawMessage `json:"before"`
	After     json.RawMessage `json:"after"`
	IP        string          `json:"ip,omitempty"`
	UserAgent string          `json:"userAgent,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (h *Handler) queryAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if entityID := q.Get("entityId"); entityID != "" {
		entries, err := h.recorder.HistoryFor(r.Context(), q.Get("entity"), entityID, queryLimit(r))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAuditDTOs(entries))
		return
	}

	if actor := q.Get("actorId"); actor != "" {
		entries, err := h.recorder.ActivityBy(r.Context(), actor, queryLimit(r))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAuditDTOs(entries))
		return
	}

	filter := audit.Filter{
		Action: audit.Action(q.Get("action")),
		Entity: q.Get("entity"),
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC 3339")
			return
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC 3339")
			return
		}
		filter.To = to
	}

	entries, err := h.recorder.Recent(r.Context(), queryLimit(r), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditDTOs(entries))
}

func toAuditDTOs(entries []audit.Entry) []auditEntryDTO {
	out := make([]auditEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = auditEntryDTO{
			ID:        e.ID,
			ActorID:   e.ActorID,
			Action:    string(e.Action),
			Entity:    e.Entity,
			EntityID:  e.EntityID,
			Before:    e.Changes.Before,
			After:     e.Changes.After,
			IP:        e.IP,
			UserAgent: e.UserAgent,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}
