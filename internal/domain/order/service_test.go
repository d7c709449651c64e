package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maisonoak/storefront/internal/domain/audit"
	"github.com/maisonoak/storefront/internal/domain/catalog"
	"github.com/maisonoak/storefront/internal/domain/stock"
)

// --- Fakes ---

type fakeVariantRepo struct {
	byID map[string]catalog.Variant
}

func (f *fakeVariantRepo) GetByID(_ context.Context, id string) (*catalog.Variant, error) {
	v, ok := f.byID[id]
	if !ok {
		return nil, catalog.ErrVariantNotFound
	}
	return &v, nil
}

func (f *fakeVariantRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Variant, error) {
	var out []catalog.Variant
	for _, id := range ids {
		if v, ok := f.byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVariantRepo) Upsert(_ context.Context, v *catalog.Variant) error {
	f.byID[v.ID] = *v
	return nil
}

type fakeOrderRepo struct {
	orders    map[string]*Order
	createErr error
	updateErr error
}

func (f *fakeOrderRepo) Create(_ context.Context, o *Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	clone := *o
	f.orders[o.ID] = &clone
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (f *fakeOrderRepo) GetByNumber(_ context.Context, number string) (*Order, error) {
	for _, o := range f.orders {
		if o.Number == number {
			clone := *o
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeOrderRepo) GetForUpdate(ctx context.Context, id string) (*Order, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeOrderRepo) Update(_ context.Context, o *Order) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.orders[o.ID]; !ok {
		return ErrNotFound
	}
	clone := *o
	f.orders[o.ID] = &clone
	return nil
}

type fakeSequence struct {
	next int
}

func (f *fakeSequence) Next(_ context.Context, _ time.Time) (int, error) {
	f.next++
	return f.next, nil
}

// fakeStockRepo keeps per-variant counters and enforces the same guard the
// SQL implementation does.
type fakeStockRepo struct {
	variants  map[string]*catalog.Variant
	movements []stock.Movement
	applyErr  error
}

func (f *fakeStockRepo) Apply(_ context.Context, m stock.Movement, guarded bool) (*stock.Movement, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	v, ok := f.variants[m.VariantID]
	if !ok {
		return nil, catalog.ErrVariantNotFound
	}
	if !v.TrackStock {
		return nil, nil
	}
	next := v.Stock + m.Quantity
	if guarded && !v.AllowBackorder && next < 0 {
		return nil, &stock.InsufficientStockError{
			VariantID: m.VariantID,
			Requested: -m.Quantity,
			Available: v.Stock,
		}
	}
	m.PreviousStock = v.Stock
	m.NewStock = next
	v.Stock = next
	f.movements = append(f.movements, m)
	return &m, nil
}

func (f *fakeStockRepo) SetLevel(_ context.Context, level int, m stock.Movement) (*stock.Movement, error) {
	v, ok := f.variants[m.VariantID]
	if !ok {
		return nil, catalog.ErrVariantNotFound
	}
	if v.Stock == level {
		return nil, stock.ErrZeroAdjustment
	}
	m.PreviousStock = v.Stock
	m.NewStock = level
	m.Quantity = level - v.Stock
	v.Stock = level
	f.movements = append(f.movements, m)
	return &m, nil
}

func (f *fakeStockRepo) History(_ context.Context, variantID string, _ int) ([]stock.Movement, error) {
	var out []stock.Movement
	for _, m := range f.movements {
		if m.VariantID == variantID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStockRepo) HistoryForOrder(_ context.Context, orderID string) ([]stock.Movement, error) {
	var out []stock.Movement
	for _, m := range f.movements {
		if m.OrderID != nil && *m.OrderID == orderID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	entries []audit.Entry
}

func (f *fakeAuditRepo) Insert(_ context.Context, e audit.Entry) (*audit.Entry, error) {
	e.CreatedAt = time.Now()
	f.entries = append(f.entries, e)
	return &e, nil
}

func (f *fakeAuditRepo) HistoryFor(_ context.Context, entity, entityID string, _ int) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, e := range f.entries {
		if e.Entity == entity && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) ActivityBy(_ context.Context, actorID string, _ int) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, e := range f.entries {
		if e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) Recent(_ context.Context, _ int, _ audit.Filter) ([]audit.Entry, error) {
	return f.entries, nil
}

// nopTx runs fn directly. Rollback behaviour is covered by the storage tests;
// here the fakes verify the error is surfaced.
type nopTx struct{}

func (nopTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Fixture ---

type fixture struct {
	svc      *Service
	variants *fakeVariantRepo
	orders   *fakeOrderRepo
	stocks   *fakeStockRepo
	audits   *fakeAuditRepo
}

func newFixture(variants ...catalog.Variant) *fixture {
	variantRepo := &fakeVariantRepo{byID: make(map[string]catalog.Variant)}
	stockRepo := &fakeStockRepo{variants: make(map[string]*catalog.Variant)}
	for i := range variants {
		variantRepo.byID[variants[i].ID] = variants[i]
		clone := variants[i]
		stockRepo.variants[clone.ID] = &clone
	}

	orderRepo := &fakeOrderRepo{orders: make(map[string]*Order)}
	auditRepo := &fakeAuditRepo{}
	recorder := audit.NewRecorder(auditRepo)
	ledger := stock.NewLedger(stockRepo, recorder, nopTx{})

	svc := NewService(variantRepo, orderRepo, &fakeSequence{}, ledger, recorder, nopTx{}, "ORD")
	return &fixture{
		svc:      svc,
		variants: variantRepo,
		orders:   orderRepo,
		stocks:   stockRepo,
		audits:   auditRepo,
	}
}

func trackedVariant(id string, price int64, inStock int) catalog.Variant {
	return catalog.Variant{
		ID:         id,
		SKU:        "SKU-" + id,
		Name:       "Variant " + id,
		Price:      price,
		Stock:      inStock,
		TrackStock: true,
	}
}

func pickupRequest(lines ...LineRequest) CreateRequest {
	return CreateRequest{
		Customer:       Customer{Name: "Ada Olsen", Phone: "+4740000001"},
		Lines:          lines,
		DeliveryMethod: DeliveryPickup,
		PaymentMethod:  PaymentCash,
		ActorID:        "anonymous",
	}
}

// --- Create ---

func TestCreate_SingleLine(t *testing.T) {
	f := newFixture(trackedVariant("v1", 10000, 10))

	result, err := f.svc.Create(context.Background(), pickupRequest(LineRequest{VariantID: "v1", Quantity: 2}))
	require.NoError(t, err)

	o := result.Order
	assert.Equal(t, StatusPendingConfirmation, o.Status)
	assert.Equal(t, int64(20000), o.Subtotal)
	assert.Equal(t, int64(20000), o.Total, "total equals subtotal before confirmation")
	assert.Equal(t, int64(0), o.ShippingCost)
	assert.NotEmpty(t, o.ID)

	// Stock deducted, one movement per line.
	assert.Equal(t, 8, f.stocks.variants["v1"].Stock)
	require.Len(t, f.stocks.movements, 1)
	m := f.stocks.movements[0]
	assert.Equal(t, stock.MovementSale, m.Type)
	assert.Equal(t, -2, m.Quantity)
	require.NotNil(t, m.OrderID)
	assert.Equal(t, o.ID, *m.OrderID)

	// Audit entry written.
	entries, err := f.audits.HistoryFor(context.Background(), "Order", o.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreate, entries[0].Action)
}

func TestCreate_OrderNumberFormat(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))

	result, err := f.svc.Create(context.Background(), pickupRequest(LineRequest{VariantID: "v1", Quantity: 1}))
	require.NoError(t, err)

	day := time.Now().UTC().Format("20060102")
	assert.Equal(t, "ORD-"+day+"-001", result.Order.Number)

	second, err := f.svc.Create(context.Background(), pickupRequest(LineRequest{VariantID: "v1", Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, "ORD-"+day+"-002", second.Order.Number)
}

func TestCreate_TotalsIdentity(t *testing.T) {
	v1 := trackedVariant("v1", 10000, 50)
	v1.FixedDiscount = &catalog.FixedDiscount{
		Enabled: true,
		Type:    catalog.DiscountPercentage,
		Value:   decimal.NewFromInt(10),
	}
	v2 := trackedVariant("v2", 2500, 50)

	f := newFixture(v1, v2)

	result, err := f.svc.Create(context.Background(), pickupRequest(
		LineRequest{VariantID: "v1", Quantity: 3},
		LineRequest{VariantID: "v2", Quantity: 2},
	))
	require.NoError(t, err)

	o := result.Order
	var sum int64
	for _, item := range o.Items {
		assert.Equal(t, item.PricePerUnit*int64(item.Quantity), item.Subtotal)
		sum += item.Subtotal
	}
	assert.Equal(t, sum, o.Subtotal)
	assert.Equal(t, int64(3*9000+2*2500), o.Subtotal)
	assert.Equal(t, int64(3*1000), o.TotalDiscount)
}

func TestCreate_ItemSnapshotsSurviveVariantChange(t *testing.T) {
	f := newFixture(trackedVariant("v1", 10000, 10))

	result, err := f.svc.Create(context.Background(), pickupRequest(LineRequest{VariantID: "v1", Quantity: 1}))
	require.NoError(t, err)

	// Reprice the variant after the order is placed.
	v := f.variants.byID["v1"]
	v.Price = 99999
	v.Name = "Renamed"
	f.variants.byID["v1"] = v

	stored, err := f.svc.Get(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), stored.Items[0].UnitPrice)
	assert.Equal(t, "Variant v1", stored.Items[0].Name)
}

func TestCreate_InsufficientStock(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 1))

	_, err := f.svc.Create(context.Background(), pickupRequest(LineRequest{VariantID: "v1", Quantity: 5}))

	var stockErr *stock.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "v1", stockErr.VariantID)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)
}

func TestCreate_UntrackedVariantSkipsLedger(t *testing.T) {
	v := trackedVariant("v1", 500, 0)
	v.TrackStock = false

	f := newFixture(v)

	result, err := f.svc.Create(context.Background(), pickupRequest(LineRequest{VariantID: "v1", Quantity: 3}))
	require.NoError(t, err)
	assert.Equal(t, int64(1500), result.Order.Subtotal)
	assert.Empty(t, f.stocks.movements, "untracked variants never write movements")
}

func TestCreate_BackorderAllowed(t *testing.T) {
	v := trackedVariant("v1", 500, 1)
	v.AllowBackorder = true

	f := newFixture(v)

	_, err := f.svc.Create(context.Background(), pickupRequest(LineRequest{VariantID: "v1", Quantity: 4}))
	require.NoError(t, err)
	assert.Equal(t, -3, f.stocks.variants["v1"].Stock)
}

func TestCreate_UnknownVariant(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), pickupRequest(LineRequest{VariantID: "ghost", Quantity: 1}))
	require.ErrorIs(t, err, catalog.ErrVariantNotFound)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		field  string
	}{
		{"no lines", func(r *CreateRequest) { r.Lines = nil }, "items"},
		{"zero quantity", func(r *CreateRequest) { r.Lines[0].Quantity = 0 }, "items"},
		{"negative quantity", func(r *CreateRequest) { r.Lines[0].Quantity = -2 }, "items"},
		{"missing name", func(r *CreateRequest) { r.Customer.Name = "" }, "customer.name"},
		{"missing phone", func(r *CreateRequest) { r.Customer.Phone = "" }, "customer.phone"},
		{"unknown delivery", func(r *CreateRequest) { r.DeliveryMethod = "teleport" }, "deliveryMethod"},
		{"unknown payment", func(r *CreateRequest) { r.PaymentMethod = "barter" }, "paymentMethod"},
		{"delivery without address", func(r *CreateRequest) { r.DeliveryMethod = DeliveryCourier }, "customer.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := pickupRequest(LineRequest{VariantID: "v1", Quantity: 1})
			tt.mutate(&req)

			_, err := f.svc.Create(context.Background(), req)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Empty(t, f.orders.orders, "nothing persisted on validation failure")
		})
	}
}

func TestCreate_NotificationPayload(t *testing.T) {
	f := newFixture(trackedVariant("v1", 10000, 10))

	result, err := f.svc.Create(context.Background(), pickupRequest(LineRequest{VariantID: "v1", Quantity: 2}))
	require.NoError(t, err)

	n := result.Notification
	assert.Equal(t, result.Order.Number, n.OrderNumber)
	assert.Equal(t, "Ada Olsen", n.CustomerName)
	require.Len(t, n.Lines, 1)
	assert.Equal(t, 2, n.Lines[0].Quantity)
	assert.Equal(t, result.Order.Total, n.Total)
}

// --- Confirm ---

func mustCreate(t *testing.T, f *fixture, lines ...LineRequest) *Order {
	t.Helper()
	result, err := f.svc.Create(context.Background(), pickupRequest(lines...))
	require.NoError(t, err)
	return result.Order
}

func TestConfirm(t *testing.T) {
	f := newFixture(trackedVariant("v1", 10000, 10))
	o := mustCreate(t, f, LineRequest{VariantID: "v1", Quantity: 2})

	confirmed, err := f.svc.Confirm(context.Background(), o.ID, 1500, "", "mgr", audit.Origin{})
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, int64(1500), confirmed.ShippingCost)
	assert.Equal(t, int64(21500), confirmed.Total)
	require.NotNil(t, confirmed.ConfirmedAt)
}

func TestConfirm_NegativeShipping(t *testing.T) {
	f := newFixture(trackedVariant("v1", 10000, 10))
	o := mustCreate(t, f, LineRequest{VariantID: "v1", Quantity: 1})

	_, err := f.svc.Confirm(context.Background(), o.ID, -1, "", "mgr", audit.Origin{})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestConfirm_AlreadyConfirmed(t *testing.T) {
	f := newFixture(trackedVariant("v1", 10000, 10))
	o := mustCreate(t, f, LineRequest{VariantID: "v1", Quantity: 1})

	_, err := f.svc.Confirm(context.Background(), o.ID, 0, "", "mgr", audit.Origin{})
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), o.ID, 0, "", "mgr", audit.Origin{})

	var stateErr *StateConflictError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StatusConfirmed, stateErr.From)
}

// --- UpdateStatus ---

func confirmedOrder(t *testing.T, f *fixture) *Order {
	t.Helper()
	o := mustCreate(t, f, LineRequest{VariantID: "v1", Quantity: 1})
	confirmed, err := f.svc.Confirm(context.Background(), o.ID, 0, "", "mgr", audit.Origin{})
	require.NoError(t, err)
	return confirmed
}

func TestUpdateStatus_ForwardProgression(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := confirmedOrder(t, f)

	for _, target := range []Status{StatusPreparing, StatusReady, StatusDelivering, StatusCompleted} {
		updated, err := f.svc.UpdateStatus(context.Background(), o.ID, target, "", "mgr", audit.Origin{})
		require.NoError(t, err, "advance to %s", target)
		assert.Equal(t, target, updated.Status)
	}
}

func TestUpdateStatus_SkippingStepsAllowed(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := confirmedOrder(t, f)

	updated, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusCompleted, "", "mgr", audit.Origin{})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
}

func TestUpdateStatus_BackwardRejected(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := confirmedOrder(t, f)

	_, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusReady, "", "mgr", audit.Origin{})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), o.ID, StatusPreparing, "", "mgr", audit.Origin{})

	var stateErr *StateConflictError
	require.ErrorAs(t, err, &stateErr)
}

func TestUpdateStatus_DedicatedTransitionsRejected(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := mustCreate(t, f, LineRequest{VariantID: "v1", Quantity: 1})

	for _, target := range []Status{StatusConfirmed, StatusCancelled} {
		_, err := f.svc.UpdateStatus(context.Background(), o.ID, target, "", "mgr", audit.Origin{})

		var stateErr *StateConflictError
		require.ErrorAs(t, err, &stateErr, "target %s must go through its own operation", target)
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := mustCreate(t, f, LineRequest{VariantID: "v1", Quantity: 1})

	_, err := f.svc.UpdateStatus(context.Background(), o.ID, Status("shipped"), "", "mgr", audit.Origin{})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestUpdateStatus_TerminalOrdersFrozen(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := confirmedOrder(t, f)

	_, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusCompleted, "", "mgr", audit.Origin{})
	require.NoError(t, err)

	for _, target := range []Status{StatusPreparing, StatusReady, StatusDelivering, StatusCompleted} {
		_, err := f.svc.UpdateStatus(context.Background(), o.ID, target, "", "mgr", audit.Origin{})

		var stateErr *StateConflictError
		require.ErrorAs(t, err, &stateErr)
	}
}

// --- Cancel ---

func TestCancel_RestoresStock(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10), trackedVariant("v2", 2000, 5))
	o := mustCreate(t, f,
		LineRequest{VariantID: "v1", Quantity: 3},
		LineRequest{VariantID: "v2", Quantity: 2},
	)
	assert.Equal(t, 7, f.stocks.variants["v1"].Stock)
	assert.Equal(t, 3, f.stocks.variants["v2"].Stock)

	cancelled, err := f.svc.Cancel(context.Background(), o.ID, "mgr", "customer request", audit.Origin{})
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "mgr", cancelled.CancelledBy)
	assert.Equal(t, "customer request", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)

	// Exact symmetry with the deductions.
	assert.Equal(t, 10, f.stocks.variants["v1"].Stock)
	assert.Equal(t, 5, f.stocks.variants["v2"].Stock)

	movements, err := f.stocks.HistoryForOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Len(t, movements, 4, "two sales plus two cancellations")
}

func TestCancel_AfterConfirm(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := confirmedOrder(t, f)

	_, err := f.svc.Cancel(context.Background(), o.ID, "mgr", "out of hours", audit.Origin{})
	require.NoError(t, err)
	assert.Equal(t, 10, f.stocks.variants["v1"].Stock)
}

func TestCancel_CompletedRejected(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := confirmedOrder(t, f)

	_, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusCompleted, "", "mgr", audit.Origin{})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), o.ID, "mgr", "too late", audit.Origin{})

	var stateErr *StateConflictError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, 9, f.stocks.variants["v1"].Stock, "no restore on rejected cancel")
}

func TestCancel_Twice(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := mustCreate(t, f, LineRequest{VariantID: "v1", Quantity: 2})

	_, err := f.svc.Cancel(context.Background(), o.ID, "mgr", "first", audit.Origin{})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), o.ID, "mgr", "second", audit.Origin{})

	var stateErr *StateConflictError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, 10, f.stocks.variants["v1"].Stock, "stock restored exactly once")
}

func TestCancel_AuditEntry(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := mustCreate(t, f, LineRequest{VariantID: "v1", Quantity: 1})

	_, err := f.svc.Cancel(context.Background(), o.ID, "mgr", "test", audit.Origin{IP: "10.0.0.1"})
	require.NoError(t, err)

	entries, err := f.audits.HistoryFor(context.Background(), "Order", o.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2, "create plus cancel")
	assert.Equal(t, audit.ActionCancel, entries[1].Action)
	assert.Equal(t, "mgr", entries[1].ActorID)
	assert.Equal(t, "10.0.0.1", entries[1].IP)
}

// --- MarkNotified ---

func TestMarkNotified(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := mustCreate(t, f, LineRequest{VariantID: "v1", Quantity: 1})

	updated, err := f.svc.MarkNotified(context.Background(), o.ID, "wamid.123", "mgr", audit.Origin{IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.True(t, updated.NotificationSent)
	assert.Equal(t, "wamid.123", updated.NotificationMessageID)
	require.NotNil(t, updated.NotificationSentAt)
}

func TestMarkNotified_AuditEntry(t *testing.T) {
	f := newFixture(trackedVariant("v1", 1000, 10))
	o := mustCreate(t, f, LineRequest{VariantID: "v1", Quantity: 1})

	_, err := f.svc.MarkNotified(context.Background(), o.ID, "wamid.123", "mgr", audit.Origin{IP: "10.0.0.1"})
	require.NoError(t, err)

	entries, err := f.audits.HistoryFor(context.Background(), "Order", o.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2, "create plus notification flip")
	assert.Equal(t, audit.ActionUpdate, entries[1].Action)
	assert.Equal(t, "mgr", entries[1].ActorID)
	assert.JSONEq(t, `{"notificationSent":false}`, string(entries[1].Changes.Before))
	assert.JSONEq(t, `{"notificationSent":true,"messageId":"wamid.123"}`, string(entries[1].Changes.After))
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
