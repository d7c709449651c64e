package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/maisonoak/storefront/internal/domain/catalog"
	"github.com/maisonoak/storefront/internal/domain/order"
)

var (
	_ order.Repository     = (*OrderRepository)(nil)
	_ order.NumberSequence = (*OrderNumberSequence)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// customer snapshot and item snapshots are serialized to JSONB: they are
// immutable documents, never queried field by field.
type OrderRepository struct {
	db *DB
}

// NewOrderRepository returns an OrderRepository over the given DB.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// jsonCustomer and jsonItem pin the storage encoding of the snapshots so the
// domain structs can evolve without silently changing persisted documents.
type jsonCustomer struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

type jsonAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type jsonImage struct {
	Thumbnail string `json:"thumbnail,omitempty"`
	Mobile    string `json:"mobile,omitempty"`
	Tablet    string `json:"tablet,omitempty"`
	Desktop   string `json:"desktop,omitempty"`
}

type jsonItem struct {
	VariantID    string          `json:"variantId"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	UnitPrice    int64           `json:"unitPrice"`
	Attributes   []jsonAttribute `json:"attributes,omitempty"`
	Image        jsonImage       `json:"image"`
	Quantity     int             `json:"quantity"`
	PricePerUnit int64           `json:"pricePerUnit"`
	Discount     int64           `json:"discount"`
	Subtotal     int64           `json:"subtotal"`
}

const orderColumns = `id, number, customer, items, subtotal, total_discount, shipping_cost, total,
	delivery_method, payment_method, status, notes,
	notification_sent, notification_sent_at, notification_message_id,
	cancelled_by, cancelled_at, cancel_reason,
	confirmed_at, completed_at, created_at, updated_at`

// Create persists a new order document.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	customer, items, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	_, err = r.db.conn(ctx).Exec(ctx, `
		INSERT INTO orders (id, number, customer, items, subtotal, total_discount, shipping_cost, total,
			delivery_method, payment_method, status, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.Number, customer, items, o.Subtotal, o.TotalDiscount, o.ShippingCost, o.Total,
		string(o.DeliveryMethod), string(o.PaymentMethod), string(o.Status), o.Notes,
		o.CreatedAt, o.UpdatedAt,
	)
	return errors.Wrapf(err, "creating order %q", o.ID)
}

// GetByID returns one order by internal id.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByNumber returns one order by its human-readable number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1`, number)
}

// GetForUpdate loads an order and locks its row until the surrounding
// transaction ends, serializing concurrent lifecycle operations.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

// Update writes back the mutable fields of an order. Items and customer are
// immutable after creation and deliberately excluded.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE orders
		SET shipping_cost = $2, total = $3, status = $4, notes = $5,
			notification_sent = $6, notification_sent_at = $7, notification_message_id = $8,
			cancelled_by = $9, cancelled_at = $10, cancel_reason = $11,
			confirmed_at = $12, completed_at = $13, updated_at = $14
		WHERE id = $1`,
		o.ID, o.ShippingCost, o.Total, string(o.Status), o.Notes,
		o.NotificationSent, o.NotificationSentAt, o.NotificationMessageID,
		o.CancelledBy, o.CancelledAt, o.CancelReason,
		o.ConfirmedAt, o.CompletedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "updating order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) get(ctx context.Context, sql string, arg any) (*order.Order, error) {
	row := r.db.conn(ctx).QueryRow(ctx, sql, arg)

	var (
		o              order.Order
		customer       []byte
		items          []byte
		deliveryMethod string
		paymentMethod  string
		status         string
	)
	err := row.Scan(&o.ID, &o.Number, &customer, &items, &o.Subtotal, &o.TotalDiscount, &o.ShippingCost, &o.Total,
		&deliveryMethod, &paymentMethod, &status, &o.Notes,
		&o.NotificationSent, &o.NotificationSentAt, &o.NotificationMessageID,
		&o.CancelledBy, &o.CancelledAt, &o.CancelReason,
		&o.ConfirmedAt, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scanning order")
	}

	o.DeliveryMethod = order.DeliveryMethod(deliveryMethod)
	o.PaymentMethod = order.PaymentMethod(paymentMethod)
	o.Status = order.Status(status)

	var jc jsonCustomer
	if err := json.Unmarshal(customer, &jc); err != nil {
		return nil, errors.Wrap(err, "unmarshaling customer")
	}
	o.Customer = order.Customer(jc)

	var ji []jsonItem
	if err := json.Unmarshal(items, &ji); err != nil {
		return nil, errors.Wrap(err, "unmarshaling items")
	}
	o.Items = make([]order.Item, len(ji))
	for i, it := range ji {
		o.Items[i] = unmarshalItem(it)
	}

	return &o, nil
}

func marshalOrderDocs(o *order.Order) (customer, items []byte, err error) {
	customer, err = json.Marshal(jsonCustomer(o.Customer))
	if err != nil {
		return nil, nil, errors.Wrap(err, "marshaling customer")
	}

	ji := make([]jsonItem, len(o.Items))
	for i, it := range o.Items {
		ji[i] = marshalItem(it)
	}
	items, err = json.Marshal(ji)
	if err != nil {
		return nil, nil, errors.Wrap(err, "marshaling items")
	}
	return customer, items, nil
}

func marshalItem(it order.Item) jsonItem {
	attrs := make([]jsonAttribute, len(it.Attributes))
	for i, a := range it.Attributes {
		attrs[i] = jsonAttribute(a)
	}
	return jsonItem{
		VariantID:    it.VariantID,
		SKU:          it.SKU,
		Name:         it.Name,
		UnitPrice:    it.UnitPrice,
		Attributes:   attrs,
		Image:        jsonImage(it.Image),
		Quantity:     it.Quantity,
		PricePerUnit: it.PricePerUnit,
		Discount:     it.Discount,
		Subtotal:     it.Subtotal,
	}
}

func unmarshalItem(it jsonItem) order.Item {
	attrs := make([]catalog.Attribute, len(it.Attributes))
	for i, a := range it.Attributes {
		attrs[i] = catalog.Attribute(a)
	}
	return order.Item{
		VariantID:    it.VariantID,
		SKU:          it.SKU,
		Name:         it.Name,
		UnitPrice:    it.UnitPrice,
		Attributes:   attrs,
		Image:        catalog.Image(it.Image),
		Quantity:     it.Quantity,
		PricePerUnit: it.PricePerUnit,
		Discount:     it.Discount,
		Subtotal:     it.Subtotal,
	}
}

// OrderNumberSequence implements the per-calendar-day counter behind order
// numbers. The upsert is a single atomic statement, so concurrent creations
// can never draw the same value.
type OrderNumberSequence struct {
	db *DB
}

// NewOrderNumberSequence returns an OrderNumberSequence over the given DB.
func NewOrderNumberSequence(db *DB) *OrderNumberSequence {
	return &OrderNumberSequence{db: db}
}

// Next returns the next sequence value for the given day.
func (s *OrderNumberSequence) Next(ctx context.Context, day time.Time) (int, error) {
	var seq int
	err := s.db.conn(ctx).QueryRow(ctx, `
		INSERT INTO order_counters (day, seq)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = order_counters.seq + 1
		RETURNING seq`,
		day.UTC().Format("2006-01-02"),
	).Scan(&seq)
	return seq, errors.Wrap(err, "advancing order counter")
}
