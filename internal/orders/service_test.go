package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shivanand-vn/SVPharma-sub000/internal/customers"
	"github.com/shivanand-vn/SVPharma-sub000/internal/ledger"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/db/models"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
	pkgerrors "github.com/shivanand-vn/SVPharma-sub000/pkg/errors"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/outbox"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/pagination"
)

type fakeOrderRepo struct {
	orders        map[uuid.UUID]*models.Order
	statusEvents  []models.OrderStatusEvent
	returns       []models.OrderReturn
	priorReturns  map[string]int
	replacedItems []models.OrderItem
	updates       []map[string]any
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:       map[uuid.UUID]*models.Order{},
		priorReturns: map[string]int{},
	}
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrderRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	order, ok := f.orders[items[0].OrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Items = items
	return nil
}

func (f *fakeOrderRepo) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	f.replacedItems = items
	return nil
}

func (f *fakeOrderRepo) AppendStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	f.statusEvents = append(f.statusEvents, *event)
	return nil
}

func (f *fakeOrderRepo) AppendReturns(ctx context.Context, returns []models.OrderReturn) error {
	f.returns = append(f.returns, returns...)
	return nil
}

func (f *fakeOrderRepo) find(id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return f.find(id)
}

func (f *fakeOrderRepo) FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return f.find(id)
}

func (f *fakeOrderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	list := &OrderList{}
	for _, order := range f.orders {
		if order.CustomerID != customerID {
			continue
		}
		if filters.Status != nil && order.Status != *filters.Status {
			continue
		}
		list.Orders = append(list.Orders, OrderSummary{
			ID:            order.ID,
			Status:        order.Status,
			TotalPrice:    order.TotalPrice,
			PaymentStatus: order.PaymentStatus,
			TotalItems:    len(order.Items),
			CreatedAt:     order.CreatedAt,
		})
	}
	return list, nil
}

func (f *fakeOrderRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if _, ok := f.orders[orderID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.updates = append(f.updates, updates)
	return nil
}

func (f *fakeOrderRepo) SumReturnedQuantities(ctx context.Context, orderID uuid.UUID) (map[string]int, error) {
	return f.priorReturns, nil
}

type stubCustomerRepo struct {
	customer *models.Customer
}

func (s *stubCustomerRepo) WithTx(tx *gorm.DB) customers.Repository { return s }

func (s *stubCustomerRepo) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	return customer, nil
}

func (s *stubCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if s.customer == nil || s.customer.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.customer, nil
}

func (s *stubCustomerRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.FindByID(ctx, id)
}

func (s *stubCustomerRepo) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCustomerRepo) UpdateDueAmount(ctx context.Context, id uuid.UUID, due decimal.Decimal) error {
	return nil
}

type fakeLedger struct {
	consumed   decimal.Decimal
	accepted   []decimal.Decimal
	settlement *ledger.ReturnSettlement
	settled    []decimal.Decimal
}

func (f *fakeLedger) EnsureWallet(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Wallet, error) {
	return &models.Wallet{CustomerID: customerID}, nil
}

func (f *fakeLedger) ConsumeForOrder(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, orderRef string, total decimal.Decimal) (decimal.Decimal, error) {
	used := decimal.Min(total, f.consumed)
	return used, nil
}

func (f *fakeLedger) ApplyAcceptance(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amountToAdd decimal.Decimal) error {
	f.accepted = append(f.accepted, amountToAdd)
	return nil
}

func (f *fakeLedger) SettleReturn(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, orderRef string, totalValue decimal.Decimal) (*ledger.ReturnSettlement, error) {
	f.settled = append(f.settled, totalValue)
	if f.settlement != nil {
		return f.settlement, nil
	}
	return &ledger.ReturnSettlement{PendingReduced: totalValue, WalletCredited: decimal.Zero}, nil
}

func (f *fakeLedger) SettlePayment(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, paymentRef string, amount decimal.Decimal) (*ledger.PaymentSettlement, error) {
	return &ledger.PaymentSettlement{OriginalDue: amount, RemainingDue: decimal.Zero}, nil
}

func (f *fakeLedger) Reconcile(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error {
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type capturePublisher struct {
	events     []outbox.DomainEvent
	oncePerAgg []enums.OutboxEventType
}

func (c *capturePublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func (c *capturePublisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.oncePerAgg = append(c.oncePerAgg, event.EventType)
	c.events = append(c.events, event)
	return nil
}

type orderFixture struct {
	svc       Service
	repo      *fakeOrderRepo
	ledger    *fakeLedger
	publisher *capturePublisher
	customer  *models.Customer
}

func newOrderFixture(t *testing.T, walletBalance decimal.Decimal) *orderFixture {
	t.Helper()

	customer := &models.Customer{ID: uuid.New(), Name: "Ravi Kumar", Email: "ravi@example.com", IsActive: true}
	repo := newFakeOrderRepo()
	ledgerSvc := &fakeLedger{consumed: walletBalance}
	publisher := &capturePublisher{}

	svc, err := NewService(repo, &stubCustomerRepo{customer: customer}, ledgerSvc, passthroughTx{}, publisher, nil)
	require.NoError(t, err)

	return &orderFixture{svc: svc, repo: repo, ledger: ledgerSvc, publisher: publisher, customer: customer}
}

func itemInput(name string, price int64, qty int) ItemInput {
	return ItemInput{Name: name, UnitPrice: decimal.NewFromInt(price), Quantity: qty}
}

func (fx *orderFixture) placeOrder(t *testing.T, items ...ItemInput) *models.Order {
	t.Helper()
	order, err := fx.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: fx.customer.ID,
		Items:      items,
	})
	require.NoError(t, err)
	return order
}

func assertErrorCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, code, typed.Code())
}

func TestCreateOrderStartsPendingWithoutDue(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)

	order := fx.placeOrder(t, itemInput("Paracetamol 500mg", 50, 3))

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, enums.OrderPaymentStatusUnpaid, order.PaymentStatus)
	assert.True(t, order.WalletAmountUsed.IsZero())
	assert.Empty(t, fx.ledger.accepted, "due must not change at creation")

	require.Len(t, fx.repo.statusEvents, 1)
	assert.Equal(t, enums.OrderStatusPending, fx.repo.statusEvents[0].Status)

	require.Len(t, fx.publisher.events, 1)
	assert.Equal(t, enums.EventOrderPlaced, fx.publisher.events[0].EventType)
}

func TestCreateOrderConsumesWalletPartially(t *testing.T) {
	fx := newOrderFixture(t, decimal.NewFromInt(100))

	order := fx.placeOrder(t, itemInput("Insulin Pen", 250, 1))

	assert.True(t, order.WalletAmountUsed.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, enums.OrderPaymentStatusUnpaid, order.PaymentStatus)
}

func TestCreateOrderFullyCoveredByWallet(t *testing.T) {
	fx := newOrderFixture(t, decimal.NewFromInt(500))

	order := fx.placeOrder(t, itemInput("Vitamin D3", 60, 2))

	assert.True(t, order.WalletAmountUsed.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, enums.OrderPaymentStatusPaid, order.PaymentStatus)
}

func TestCreateOrderUnknownCustomer(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)

	_, err := fx.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: uuid.New(),
		Items:      []ItemInput{itemInput("Aspirin", 20, 1)},
	})
	assertErrorCode(t, err, pkgerrors.CodeNotFound)
}

func TestCreateOrderRejectsInvalidItems(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)

	_, err := fx.svc.Create(context.Background(), CreateOrderInput{CustomerID: fx.customer.ID})
	assertErrorCode(t, err, pkgerrors.CodeValidation)

	_, err = fx.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: fx.customer.ID,
		Items:      []ItemInput{itemInput("Aspirin", 20, 0)},
	})
	assertErrorCode(t, err, pkgerrors.CodeValidation)
}

func TestTransitionToProcessingChargesRemainder(t *testing.T) {
	fx := newOrderFixture(t, decimal.NewFromInt(100))
	order := fx.placeOrder(t, itemInput("Insulin Pen", 250, 1))

	_, err := fx.svc.Transition(context.Background(), TransitionInput{
		OrderID:      order.ID,
		TargetStatus: enums.OrderStatusProcessing,
		ActorID:      uuid.New(),
		ActorRole:    enums.ActorRoleAdmin,
	})
	require.NoError(t, err)

	require.Len(t, fx.ledger.accepted, 1)
	assert.True(t, fx.ledger.accepted[0].Equal(decimal.NewFromInt(150)), "due adds total minus wallet usage")

	last := fx.publisher.events[len(fx.publisher.events)-1]
	assert.Equal(t, enums.EventOrderAccepted, last.EventType)
}

func TestLifecycleEventsEmitOncePerOrder(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Aspirin", 20, 3))

	_, err := fx.svc.Transition(context.Background(), TransitionInput{
		OrderID:      order.ID,
		TargetStatus: enums.OrderStatusProcessing,
		ActorID:      uuid.New(),
		ActorRole:    enums.ActorRoleAdmin,
	})
	require.NoError(t, err)

	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderPlaced, enums.EventOrderAccepted}, fx.publisher.oncePerAgg)

	order.Status = enums.OrderStatusDelivered
	_, err = fx.svc.Return(context.Background(), ReturnInput{
		OrderID:   order.ID,
		Items:     []ReturnItemInput{{Name: "Aspirin", Quantity: 1, Reason: "damaged"}},
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	require.NoError(t, err)

	// Returns can repeat per order, so the returned event bypasses the
	// once-per-aggregate path.
	assert.Len(t, fx.publisher.oncePerAgg, 2)
	assert.Equal(t, enums.EventOrderReturned, fx.publisher.events[len(fx.publisher.events)-1].EventType)
}

func TestTransitionWithModificationSnapshotsOriginalOnce(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Amoxicillin", 80, 2))

	_, err := fx.svc.Transition(context.Background(), TransitionInput{
		OrderID:       order.ID,
		TargetStatus:  enums.OrderStatusProcessing,
		ModifiedItems: []ItemInput{itemInput("Amoxicillin", 80, 1)},
		ActorID:       uuid.New(),
		ActorRole:     enums.ActorRoleAdmin,
	})
	require.NoError(t, err)

	updates := fx.repo.updates[len(fx.repo.updates)-1]
	assert.Contains(t, updates, "original_items")
	assert.Contains(t, updates, "original_total_price")
	assert.Equal(t, true, updates["is_admin_modified"])
	assert.True(t, updates["total_price"].(decimal.Decimal).Equal(decimal.NewFromInt(80)))

	require.Len(t, fx.ledger.accepted, 1)
	assert.True(t, fx.ledger.accepted[0].Equal(decimal.NewFromInt(80)), "charge uses the modified total")

	snapshot := order.OriginalItems
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Amoxicillin", snapshot[0].Name)
	assert.Equal(t, 2, snapshot[0].Quantity)
}

func TestModificationDoesNotOverwriteSnapshot(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Amoxicillin", 80, 2))
	order.IsAdminModified = true

	_, err := fx.svc.Transition(context.Background(), TransitionInput{
		OrderID:       order.ID,
		TargetStatus:  enums.OrderStatusProcessing,
		ModifiedItems: []ItemInput{itemInput("Amoxicillin", 80, 1)},
		ActorID:       uuid.New(),
		ActorRole:     enums.ActorRoleAdmin,
	})
	require.NoError(t, err)

	updates := fx.repo.updates[len(fx.repo.updates)-1]
	assert.NotContains(t, updates, "original_items")
	assert.NotContains(t, updates, "original_total_price")
}

func TestTransitionRequiresPredecessor(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Aspirin", 20, 1))

	_, err := fx.svc.Transition(context.Background(), TransitionInput{
		OrderID:      order.ID,
		TargetStatus: enums.OrderStatusShipped,
		ActorID:      uuid.New(),
		ActorRole:    enums.ActorRoleAdmin,
	})
	assertErrorCode(t, err, pkgerrors.CodeStateConflict)
}

func TestTerminalOrdersAreImmutable(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Aspirin", 20, 1))
	order.Status = enums.OrderStatusCancelled

	_, err := fx.svc.Transition(context.Background(), TransitionInput{
		OrderID:      order.ID,
		TargetStatus: enums.OrderStatusProcessing,
		ActorID:      uuid.New(),
		ActorRole:    enums.ActorRoleAdmin,
	})
	assertErrorCode(t, err, pkgerrors.CodeStateConflict)
	assert.Contains(t, err.Error(), "already cancelled")
}

func TestDeliveryRequiresSlip(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Aspirin", 20, 1))
	order.Status = enums.OrderStatusShipped

	_, err := fx.svc.Transition(context.Background(), TransitionInput{
		OrderID:      order.ID,
		TargetStatus: enums.OrderStatusDelivered,
		ActorID:      uuid.New(),
		ActorRole:    enums.ActorRoleAdmin,
	})
	assertErrorCode(t, err, pkgerrors.CodeValidation)
}

func TestCancellationRequiresReason(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Aspirin", 20, 1))

	_, err := fx.svc.Transition(context.Background(), TransitionInput{
		OrderID:      order.ID,
		TargetStatus: enums.OrderStatusCancelled,
		ActorID:      uuid.New(),
		ActorRole:    enums.ActorRoleAdmin,
	})
	assertErrorCode(t, err, pkgerrors.CodeValidation)
}

func TestReturnRequiresDeliveredOrder(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Aspirin", 20, 2))

	_, err := fx.svc.Return(context.Background(), ReturnInput{
		OrderID:   order.ID,
		Items:     []ReturnItemInput{{Name: "Aspirin", Quantity: 1, Reason: "damaged"}},
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	assertErrorCode(t, err, pkgerrors.CodeStateConflict)
}

func TestReturnUnknownItem(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Aspirin", 20, 2))
	order.Status = enums.OrderStatusDelivered

	_, err := fx.svc.Return(context.Background(), ReturnInput{
		OrderID:   order.ID,
		Items:     []ReturnItemInput{{Name: "Ibuprofen", Quantity: 1, Reason: "damaged"}},
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	assertErrorCode(t, err, pkgerrors.CodeNotFound)
}

func TestReturnCapsAtDeliveredQuantity(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Aspirin", 20, 3))
	order.Status = enums.OrderStatusDelivered
	fx.repo.priorReturns = map[string]int{"Aspirin": 2}

	_, err := fx.svc.Return(context.Background(), ReturnInput{
		OrderID:   order.ID,
		Items:     []ReturnItemInput{{Name: "Aspirin", Quantity: 2, Reason: "damaged"}},
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	assertErrorCode(t, err, pkgerrors.CodeValidation)
}

func TestReturnSettlesValueAndRecordsLines(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Aspirin", 20, 3), itemInput("Bandages", 10, 5))
	order.Status = enums.OrderStatusDelivered
	fx.ledger.settlement = &ledger.ReturnSettlement{
		PendingReduced: decimal.NewFromInt(30),
		WalletCredited: decimal.NewFromInt(20),
	}

	result, err := fx.svc.Return(context.Background(), ReturnInput{
		OrderID: order.ID,
		Items: []ReturnItemInput{
			{Name: "Aspirin", Quantity: 2, Reason: "damaged"},
			{Name: "Bandages", Quantity: 1, Reason: "wrong size"},
		},
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	require.NoError(t, err)

	require.Len(t, fx.ledger.settled, 1)
	assert.True(t, fx.ledger.settled[0].Equal(decimal.NewFromInt(50)), "2x20 + 1x10")
	assert.True(t, result.PendingReduced.Equal(decimal.NewFromInt(30)))
	assert.True(t, result.WalletCredited.Equal(decimal.NewFromInt(20)))

	require.Len(t, fx.repo.returns, 2)
	assert.Equal(t, "Aspirin", fx.repo.returns[0].Name)
	assert.True(t, fx.repo.returns[0].UnitPrice.Equal(decimal.NewFromInt(20)))

	last := fx.publisher.events[len(fx.publisher.events)-1]
	assert.Equal(t, enums.EventOrderReturned, last.EventType)
}

func TestGetEnforcesOwnership(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	order := fx.placeOrder(t, itemInput("Aspirin", 20, 1))

	_, err := fx.svc.Get(context.Background(), order.ID, uuid.New(), enums.ActorRoleCustomer)
	assertErrorCode(t, err, pkgerrors.CodeForbidden)

	got, err := fx.svc.Get(context.Background(), order.ID, uuid.New(), enums.ActorRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	got, err = fx.svc.Get(context.Background(), order.ID, fx.customer.ID, enums.ActorRoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestListFiltersByStatus(t *testing.T) {
	fx := newOrderFixture(t, decimal.Zero)
	fx.placeOrder(t, itemInput("Aspirin", 20, 1))
	delivered := fx.placeOrder(t, itemInput("Bandages", 10, 1))
	delivered.Status = enums.OrderStatusDelivered

	status := enums.OrderStatusDelivered
	list, err := fx.svc.List(context.Background(), fx.customer.ID, pagination.Params{Limit: 10}, ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, delivered.ID, list.Orders[0].ID)
}
