package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/maisonoak/storefront/internal/domain/stock"
)

type movementDTO struct {
	ID            string    `json:"id"`
	VariantID     string    `json:"variantId"`
	Type          string    `json:"type"`
	Quantity      int       `json:"quantity"`
	PreviousStock int       `json:"previousStock"`
	NewStock      int       `json:"newStock"`
	OrderID       *string   `json:"orderId,omitempty"`
	ActorID       *string   `json:"actorId,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type adjustStockRequest struct {
	Stock  int    `json:"stock"`
	Reason string `json:"reason"`
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := h.ledger.Adjust(r.Context(), r.PathValue("id"), req.Stock, req.Reason, actorID(r.Context()), origin(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTO(m))
}

type restockRequest struct {
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

func (h *Handler) restockVariant(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := h.ledger.Restock(r.Context(), r.PathValue("id"), req.Quantity, actorID(r.Context()), req.Notes, origin(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTO(m))
}

func (h *Handler) variantStockHistory(w http.ResponseWriter, r *http.Request) {
	movements, err := h.ledger.History(r.Context(), r.PathValue("id"), queryLimit(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTOs(movements))
}

func (h *Handler) orderStockHistory(w http.ResponseWriter, r *http.Request) {
	movements, err := h.ledger.HistoryForOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementDTOs(movements))
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	return min(limit, maxHistoryLimit)
}

func toMovementDTO(m *stock.Movement) movementDTO {
	return movementDTO{
		ID:            m.ID,
		VariantID:     m.VariantID,
		Type:          string(m.Type),
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		OrderID:       m.OrderID,
		ActorID:       m.ActorID,
		Reason:        m.Reason,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
	}
}

func toMovementDTOs(movements []stock.Movement) []movementDTO {
	out := make([]movementDTO, len(movements))
	for i := range movements {
		out[i] = toMovementDTO(&movements[i])
	}
	return out
}
