// Package handler exposes the fulfillment core over JSON HTTP. It is a thin
// adapter: request decoding, actor resolution, error mapping. All business
// rules live in the domain services.
package handler

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/maisonoak/storefront/internal/domain/audit"
	"github.com/maisonoak/storefront/internal/domain/order"
	"github.com/maisonoak/storefront/internal/domain/stock"
)

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	orders   *order.Service
	ledger   *stock.Ledger
	recorder *audit.Recorder
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, ledger *stock.Ledger, recorder *audit.Recorder) *Handler {
	return &Handler{
		orders:   orders,
		ledger:   ledger,
		recorder: recorder,
	}
}

// Register mounts all routes on the mux. Storefront checkout is public;
// everything else requires a resolved back-office actor.
func (h *Handler) Register(mux *http.ServeMux, actors *ActorResolver) {
	admin := actors.Require

	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.Handle("GET /api/orders/{id}", admin(http.HandlerFunc(h.getOrder)))
	mux.Handle("POST /api/orders/{id}/confirm", admin(http.HandlerFunc(h.confirmOrder)))
	mux.Handle("POST /api/orders/{id}/status", admin(http.HandlerFunc(h.updateOrderStatus)))
	mux.Handle("POST /api/orders/{id}/cancel", admin(http.HandlerFunc(h.cancelOrder)))
	mux.Handle("POST /api/orders/{id}/notified", admin(http.HandlerFunc(h.markNotified)))
	mux.Handle("GET /api/orders/{id}/stock-history", admin(http.HandlerFunc(h.orderStockHistory)))

	mux.Handle("POST /api/variants/{id}/stock/adjust", admin(http.HandlerFunc(h.adjustStock)))
	mux.Handle("POST /api/variants/{id}/stock/restock", admin(http.HandlerFunc(h.restockVariant)))
	mux.Handle("GET /api/variants/{id}/stock-history", admin(http.HandlerFunc(h.variantStockHistory)))

	mux.Handle("GET /api/audit", admin(http.HandlerFunc(h.queryAudit)))
}

// origin extracts the request origin recorded in audit entries.
func origin(r *http.Request) audit.Origin {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}
	return audit.Origin{IP: ip, UserAgent: r.UserAgent()}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
