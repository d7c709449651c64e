package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/maisonoak/storefront/internal/domain/audit"
	"github.com/maisonoak/storefront/internal/domain/catalog"
	"github.com/maisonoak/storefront/internal/domain/pricing"
	"github.com/maisonoak/storefront/internal/domain/stock"
)

// TxRunner executes fn inside one storage transaction, carried through the
// context to every repository call fn makes.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LineRequest is one requested order line.
type LineRequest struct {
	VariantID string
	Quantity  int
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	Customer       Customer
	Lines          []LineRequest
	DeliveryMethod DeliveryMethod
	PaymentMethod  PaymentMethod
	Notes          string
	ActorID        string
	Origin         audit.Origin
}

// CreateResult is the outcome of a successful creation: the persisted order
// plus the payload handed to the external notification renderers.
type CreateResult struct {
	Order        *Order
	Notification Notification
}

// Service drives the order lifecycle. Each operation sequences its steps
// explicitly: validation, pricing, persistence, ledger update, audit write.
// Writes happen inside a single transaction, so either everything the
// operation implies is applied, or nothing is.
type Service struct {
	variants catalog.Repository
	orders   Repository
	seq      NumberSequence
	ledger   *stock.Ledger
	recorder *audit.Recorder
	tx       TxRunner

	numberPrefix string
	now          func() time.Time
}

// NewService creates an order Service with the required collaborators.
// numberPrefix is the leading token of generated order numbers.
func NewService(
	variants catalog.Repository,
	orders Repository,
	seq NumberSequence,
	ledger *stock.Ledger,
	recorder *audit.Recorder,
	tx TxRunner,
	numberPrefix string,
) *Service {
	return &Service{
		variants:     variants,
		orders:       orders,
		seq:          seq,
		ledger:       ledger,
		recorder:     recorder,
		tx:           tx,
		numberPrefix: numberPrefix,
		now:          time.Now,
	}
}

// statusSnapshot is the audited view of an order transition.
type statusSnapshot struct {
	Status       Status `json:"status"`
	Total        int64  `json:"total,omitempty"`
	ShippingCost int64  `json:"shippingCost,omitempty"`
}

// notificationSnapshot is the audited view of an order's notification state.
type notificationSnapshot struct {
	NotificationSent bool   `json:"notificationSent"`
	MessageID        string `json:"messageId,omitempty"`
}

// Create validates the request, prices every line, and persists the order
// together with its stock deductions and audit entry in one transaction.
// Any line failing the stock guard aborts the whole creation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	// Fetch all variants in a single batch.
	ids := lo.Map(req.Lines, func(l LineRequest, _ int) string { return l.VariantID })
	fetched, err := s.variants.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get variants")
	}
	byID := lo.KeyBy(fetched, func(v catalog.Variant) string { return v.ID })

	// Price each line and build the immutable item snapshots.
	items := make([]Item, len(req.Lines))
	var subtotal, totalDiscount int64
	for i, line := range req.Lines {
		v, ok := byID[line.VariantID]
		if !ok {
			return nil, errors.Wrapf(catalog.ErrVariantNotFound, "variant %s", line.VariantID)
		}

		priced := pricing.PriceLine(v.Price, line.Quantity, v.FixedDiscount, v.TierDiscount, now)
		items[i] = Item{
			VariantID:    v.ID,
			SKU:          v.SKU,
			Name:         v.Name,
			UnitPrice:    v.Price,
			Attributes:   v.Attributes,
			Image:        v.Image,
			Quantity:     line.Quantity,
			PricePerUnit: priced.UnitPrice,
			Discount:     priced.DiscountPerUnit * int64(line.Quantity),
			Subtotal:     priced.Subtotal,
		}
		subtotal += priced.Subtotal
		totalDiscount += items[i].Discount
	}

	o := &Order{
		ID:             uuid.New().String(),
		Customer:       req.Customer,
		Items:          items,
		Subtotal:       subtotal,
		TotalDiscount:  totalDiscount,
		Total:          subtotal,
		DeliveryMethod: req.DeliveryMethod,
		PaymentMethod:  req.PaymentMethod,
		Status:         StatusPendingConfirmation,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		seq, err := s.seq.Next(ctx, now)
		if err != nil {
			return errors.Wrap(err, "next order number")
		}
		o.Number = FormatNumber(s.numberPrefix, now, seq)

		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		for _, item := range o.Items {
			if _, err := s.ledger.Deduct(ctx, item.VariantID, item.Quantity, "sale", &o.ID); err != nil {
				return errors.Wrapf(err, "deduct variant %s", item.VariantID)
			}
		}

		_, err = s.recorder.Record(ctx, req.ActorID, audit.ActionCreate, "Order", o.ID,
			nil, statusSnapshot{Status: o.Status, Total: o.Total}, req.Origin)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &CreateResult{Order: o, Notification: buildNotification(o)}, nil
}

// Confirm moves a pending order to confirmed, fixing its shipping cost and
// final total. Allowed only from pending_confirmation.
func (s *Service) Confirm(ctx context.Context, orderID string, shippingCost int64, notes, actorID string, origin audit.Origin) (*Order, error) {
	if shippingCost < 0 {
		return nil, &ValidationError{Field: "shippingCost", Reason: "must not be negative"}
	}

	var confirmed *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusPendingConfirmation {
			return &StateConflictError{OrderID: o.ID, From: o.Status, To: StatusConfirmed}
		}

		before := statusSnapshot{Status: o.Status, Total: o.Total}

		now := s.now().UTC()
		o.Status = StatusConfirmed
		o.ShippingCost = shippingCost
		o.Total = o.Subtotal + shippingCost
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
		if notes != "" {
			o.Notes = notes
		}
		o.UpdatedAt = now

		if err := s.orders.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}

		_, err = s.recorder.Record(ctx, actorID, audit.ActionUpdate, "Order", o.ID,
			before, statusSnapshot{Status: o.Status, Total: o.Total, ShippingCost: o.ShippingCost}, origin)
		if err != nil {
			return err
		}
		confirmed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// UpdateStatus advances an order along the forward progression. Terminal
// orders reject every target; cancellation and confirmation have their own
// operations.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, target Status, notes, actorID string, origin audit.Origin) (*Order, error) {
	if !target.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}

	var updated *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if target == StatusCancelled || target == StatusConfirmed || !o.Status.CanAdvanceTo(target) {
			return &StateConflictError{OrderID: o.ID, From: o.Status, To: target}
		}

		before := statusSnapshot{Status: o.Status}

		now := s.now().UTC()
		o.Status = target
		if target == StatusCompleted && o.CompletedAt == nil {
			o.CompletedAt = &now
		}
		if notes != "" {
			o.Notes = notes
		}
		o.UpdatedAt = now

		if err := s.orders.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}

		_, err = s.recorder.Record(ctx, actorID, audit.ActionUpdate, "Order", o.ID,
			before, statusSnapshot{Status: o.Status}, origin)
		if err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel terminates an order and puts every deducted line back into stock.
// The restores, the order update, and the audit entry commit together.
func (s *Service) Cancel(ctx context.Context, orderID, actorID, reason string, origin audit.Origin) (*Order, error) {
	var cancelled *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.Cancellable() {
			return &StateConflictError{OrderID: o.ID, From: o.Status, To: StatusCancelled}
		}

		for _, item := range o.Items {
			if _, err := s.ledger.Restore(ctx, item.VariantID, item.Quantity, "cancellation", &o.ID, &actorID, reason); err != nil {
				return errors.Wrapf(err, "restore variant %s", item.VariantID)
			}
		}

		before := statusSnapshot{Status: o.Status}

		now := s.now().UTC()
		o.Status = StatusCancelled
		o.CancelledBy = actorID
		o.CancelReason = reason
		if o.CancelledAt == nil {
			o.CancelledAt = &now
		}
		o.UpdatedAt = now

		if err := s.orders.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}

		_, err = s.recorder.Record(ctx, actorID, audit.ActionCancel, "Order", o.ID,
			before, statusSnapshot{Status: o.Status}, origin)
		if err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// MarkNotified flags the order as notified after an external renderer has
// delivered the message. The provider message id is stored for tracing, and
// the flip is audited like every other order mutation.
func (s *Service) MarkNotified(ctx context.Context, orderID, messageID, actorID string, origin audit.Origin) (*Order, error) {
	var updated *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		before := notificationSnapshot{
			NotificationSent: o.NotificationSent,
			MessageID:        o.NotificationMessageID,
		}

		now := s.now().UTC()
		o.NotificationSent = true
		o.NotificationSentAt = &now
		o.NotificationMessageID = messageID
		o.UpdatedAt = now

		if err := s.orders.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}

		_, err = s.recorder.Record(ctx, actorID, audit.ActionUpdate, "Order", o.ID,
			before, notificationSnapshot{NotificationSent: true, MessageID: messageID}, origin)
		if err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get returns one order by internal id.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

func validateCreate(req CreateRequest) error {
	if len(req.Lines) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one line is required"}
	}
	for _, l := range req.Lines {
		if l.VariantID == "" {
			return &ValidationError{Field: "items", Reason: "variant id is required"}
		}
		if l.Quantity <= 0 {
			return &ValidationError{Field: "items", Reason: "quantity must be greater than 0"}
		}
	}
	if req.Customer.Name == "" {
		return &ValidationError{Field: "customer.name", Reason: "required"}
	}
	if req.Customer.Phone == "" {
		return &ValidationError{Field: "customer.phone", Reason: "required"}
	}
	switch req.DeliveryMethod {
	case DeliveryPickup:
	case DeliveryCourier:
		if req.Customer.Address == "" {
			return &ValidationError{Field: "customer.address", Reason: "required for delivery"}
		}
	default:
		return &ValidationError{Field: "deliveryMethod", Reason: "unknown delivery method"}
	}
	switch req.PaymentMethod {
	case PaymentCash, PaymentTransfer:
	default:
		return &ValidationError{Field: "paymentMethod", Reason: "unknown payment method"}
	}
	return nil
}
