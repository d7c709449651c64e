package handler

import (
	"net/http"
	"time"

	"github.com/maisonoak/storefront/internal/domain/order"
)

type customerDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

type lineDTO struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Customer       customerDTO `json:"customer"`
	Items          []lineDTO   `json:"items"`
	DeliveryMethod string      `json:"deliveryMethod"`
	PaymentMethod  string      `json:"paymentMethod"`
	Notes          string      `json:"notes,omitempty"`
}

type itemDTO struct {
	VariantID    string            `json:"variantId"`
	SKU          string            `json:"sku"`
	Name         string            `json:"name"`
	UnitPrice    int64             `json:"unitPrice"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Quantity     int               `json:"quantity"`
	PricePerUnit int64             `json:"pricePerUnit"`
	Discount     int64             `json:"discount"`
	Subtotal     int64             `json:"subtotal"`
}

type orderDTO struct {
	ID             string      `json:"id"`
	Number         string      `json:"number"`
	Customer       customerDTO `json:"customer"`
	Items          []itemDTO   `json:"items"`
	Subtotal       int64       `json:"subtotal"`
	TotalDiscount  int64       `json:"totalDiscount"`
	ShippingCost   int64       `json:"shippingCost"`
	Total          int64       `json:"total"`
	DeliveryMethod string      `json:"deliveryMethod"`
	PaymentMethod  string      `json:"paymentMethod"`
	Status         string      `json:"status"`
	Notes          string      `json:"notes,omitempty"`
	CancelReason   string      `json:"cancelReason,omitempty"`
	ConfirmedAt    *time.Time  `json:"confirmedAt,omitempty"`
	CompletedAt    *time.Time  `json:"completedAt,omitempty"`
	CancelledAt    *time.Time  `json:"cancelledAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type createOrderResponse struct {
	Order        orderDTO           `json:"order"`
	Notification order.Notification `json:"notification"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	lines := make([]order.LineRequest, len(req.Items))
	for i, item := range req.Items {
		lines[i] = order.LineRequest{VariantID: item.VariantID, Quantity: item.Quantity}
	}

	result, err := h.orders.Create(r.Context(), order.CreateRequest{
		Customer: order.Customer{
			Name:    req.Customer.Name,
			Email:   req.Customer.Email,
			Phone:   req.Customer.Phone,
			Address: req.Customer.Address,
		},
		Lines:          lines,
		DeliveryMethod: order.DeliveryMethod(req.DeliveryMethod),
		PaymentMethod:  order.PaymentMethod(req.PaymentMethod),
		Notes:          req.Notes,
		ActorID:        actorID(r.Context()),
		Origin:         origin(r),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		Order:        toOrderDTO(result.Order),
		Notification: result.Notification,
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

type confirmOrderRequest struct {
	ShippingCost int64  `json:"shippingCost"`
	Notes        string `json:"notes,omitempty"`
}

func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	var req confirmOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.Confirm(r.Context(), r.PathValue("id"), req.ShippingCost, req.Notes, actorID(r.Context()), origin(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), order.Status(req.Status), req.Notes, actorID(r.Context()), origin(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.Cancel(r.Context(), r.PathValue("id"), actorID(r.Context()), req.Reason, origin(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

type markNotifiedRequest struct {
	MessageID string `json:"messageId"`
}

func (h *Handler) markNotified(w http.ResponseWriter, r *http.Request) {
	var req markNotifiedRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.MarkNotified(r.Context(), r.PathValue("id"), req.MessageID, actorID(r.Context()), origin(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

func toOrderDTO(o *order.Order) orderDTO {
	items := make([]itemDTO, len(o.Items))
	for i, item := range o.Items {
		var attrs map[string]string
		if len(item.Attributes) > 0 {
			attrs = make(map[string]string, len(item.Attributes))
			for _, a := range item.Attributes {
				attrs[a.Name] = a.Value
			}
		}
		items[i] = itemDTO{
			VariantID:    item.VariantID,
			SKU:          item.SKU,
			Name:         item.Name,
			UnitPrice:    item.UnitPrice,
			Attributes:   attrs,
			Quantity:     item.Quantity,
			PricePerUnit: item.PricePerUnit,
			Discount:     item.Discount,
			Subtotal:     item.Subtotal,
		}
	}

	return orderDTO{
		ID:     o.ID,
		Number: o.Number,
		Customer: customerDTO{
			Name:    o.Customer.Name,
			Email:   o.Customer.Email,
			Phone:   o.Customer.Phone,
			Address: o.Customer.Address,
		},
		Items:          items,
		Subtotal:       o.Subtotal,
		TotalDiscount:  o.TotalDiscount,
		ShippingCost:   o.ShippingCost,
		Total:          o.Total,
		DeliveryMethod: string(o.DeliveryMethod),
		PaymentMethod:  string(o.PaymentMethod),
		Status:         string(o.Status),
		Notes:          o.Notes,
		CancelReason:   o.CancelReason,
		ConfirmedAt:    o.ConfirmedAt,
		CompletedAt:    o.CompletedAt,
		CancelledAt:    o.CancelledAt,
		CreatedAt:      o.CreatedAt,
	}
}
