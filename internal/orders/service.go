package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shivanand-vn/SVPharma-sub000/internal/customers"
	"github.com/shivanand-vn/SVPharma-sub000/internal/ledger"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/db/models"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
	pkgerrors "github.com/shivanand-vn/SVPharma-sub000/pkg/errors"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/metrics"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/outbox"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/pagination"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Return(ctx context.Context, input ReturnInput) (*ReturnResult, error)
	Get(ctx context.Context, orderID, requesterID uuid.UUID, role enums.ActorRole) (*models.Order, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
}

type service struct {
	repo      Repository
	customers customers.Repository
	ledger    ledger.Service
	tx        txRunner
	outbox    outboxPublisher
	metrics   *metrics.LifecycleMetrics
}

// OrderPlacedEvent is emitted when a customer places an order.
type OrderPlacedEvent struct {
	OrderID          uuid.UUID       `json:"order_id"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	WalletAmountUsed decimal.Decimal `json:"wallet_amount_used"`
}

// OrderTransitionEvent is emitted when an order changes status.
type OrderTransitionEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	Status      enums.OrderStatus `json:"status"`
	TotalPrice  decimal.Decimal   `json:"total_price"`
	AmountAdded decimal.Decimal   `json:"amount_added"`
}

// OrderReturnedEvent surfaces the settlement split after a return.
type OrderReturnedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	TotalValue     decimal.Decimal `json:"total_value"`
	PendingReduced decimal.Decimal `json:"pending_reduced"`
	WalletCredited decimal.Decimal `json:"wallet_credited"`
}

// NewService builds an order service with the required dependencies. The
// metrics recorder may be nil.
func NewService(repo Repository, customerRepo customers.Repository, ledgerSvc ledger.Service, tx txRunner, publisher outboxPublisher, recorder *metrics.LifecycleMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if customerRepo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		customers: customerRepo,
		ledger:    ledgerSvc,
		tx:        tx,
		outbox:    publisher,
		metrics:   recorder,
	}, nil
}

// Create builds a pending order, consuming wallet credit but never touching
// the due balance. Due is applied only when the admin accepts the order.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	items, total, err := buildItems(input.Items)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.customers.WithTx(tx).FindByID(ctx, input.CustomerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}

		order := &models.Order{
			CustomerID:       input.CustomerID,
			Status:           enums.OrderStatusPending,
			TotalPrice:       total,
			WalletAmountUsed: decimal.Zero,
			PaymentStatus:    enums.OrderPaymentStatusUnpaid,
		}
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := repo.AppendStatusEvent(ctx, &models.OrderStatusEvent{
			OrderID: order.ID,
			Status:  enums.OrderStatusPending,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
		}

		used, err := s.ledger.ConsumeForOrder(ctx, tx, input.CustomerID, order.ID.String(), total)
		if err != nil {
			return err
		}
		if used.IsPositive() {
			updates := map[string]any{"wallet_amount_used": used}
			if used.Equal(total) {
				updates["payment_status"] = enums.OrderPaymentStatusPaid
				order.PaymentStatus = enums.OrderPaymentStatusPaid
			}
			if err := repo.Update(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet usage on order")
			}
			order.WalletAmountUsed = used
		}

		order.Items = items
		created = order
		// Lifecycle events fire at most once per order; a retried request
		// lands on the existing row instead of a unique violation.
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         buildActor(input.CustomerID, enums.ActorRoleCustomer),
			Data: OrderPlacedEvent{
				OrderID:          order.ID,
				CustomerID:       order.CustomerID,
				TotalPrice:       order.TotalPrice,
				WalletAmountUsed: order.WalletAmountUsed,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Transition applies one step of the admin-driven state machine together
// with its financial side effects.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.TargetStatus.IsValid() || input.TargetStatus == enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order already %s", order.Status))
		}
		required, _ := input.TargetStatus.Predecessor()
		if order.Status != required {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("transition to %s requires status %s, order is %s", input.TargetStatus, required, order.Status))
		}

		updates := map[string]any{"status": input.TargetStatus}
		amountAdded := decimal.Zero

		switch input.TargetStatus {
		case enums.OrderStatusProcessing:
			if input.ModifiedItems != nil {
				if err := s.applyModification(ctx, repo, order, input.ModifiedItems, updates); err != nil {
					return err
				}
			}
			amountAdded = decimal.Max(decimal.Zero, order.TotalPrice.Sub(order.WalletAmountUsed))
			if err := s.ledger.ApplyAcceptance(ctx, tx, order.CustomerID, amountAdded); err != nil {
				return err
			}

		case enums.OrderStatusShipped:
			// pure status change

		case enums.OrderStatusDelivered:
			if strings.TrimSpace(input.DeliverySlipURL) == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "delivery proof required")
			}
			updates["delivery_slip_url"] = input.DeliverySlipURL
			slip := input.DeliverySlipURL
			order.DeliverySlipURL = &slip

		case enums.OrderStatusCancelled:
			if strings.TrimSpace(input.Reason) == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
			}
			updates["cancellation_reason"] = input.Reason
			reason := input.Reason
			order.CancellationReason = &reason
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.AppendStatusEvent(ctx, &models.OrderStatusEvent{
			OrderID: order.ID,
			Status:  input.TargetStatus,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
		}

		order.Status = input.TargetStatus
		result = order
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     transitionEventType(input.TargetStatus),
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         buildActor(input.ActorID, input.ActorRole),
			Data: OrderTransitionEvent{
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				Status:      order.Status,
				TotalPrice:  order.TotalPrice,
				AmountAdded: amountAdded,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(input.TargetStatus.String())
	return result, nil
}

// applyModification swaps the order lines for the admin's set, snapshotting
// the original order exactly once.
func (s *service) applyModification(ctx context.Context, repo Repository, order *models.Order, modified []ItemInput, updates map[string]any) error {
	if len(modified) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "modified items cannot be empty")
	}
	items, total, err := buildItems(modified)
	if err != nil {
		return err
	}

	if !order.IsAdminModified {
		snapshot := make(types.OrderItemSnapshots, 0, len(order.Items))
		for _, item := range order.Items {
			snapshot = append(snapshot, types.OrderItemSnapshot{
				MedicineID: item.MedicineID,
				Name:       item.Name,
				UnitPrice:  item.UnitPrice,
				Quantity:   item.Quantity,
			})
		}
		originalTotal := order.TotalPrice
		updates["original_items"] = snapshot
		updates["original_total_price"] = originalTotal
		updates["is_admin_modified"] = true
		order.OriginalItems = snapshot
		order.OriginalTotalPrice = &originalTotal
		order.IsAdminModified = true
	}

	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := repo.ReplaceItems(ctx, order.ID, items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order items")
	}
	updates["total_price"] = total
	order.Items = items
	order.TotalPrice = total
	return nil
}

// Return processes a post-delivery return, settling its value due-first and
// spilling the remainder to wallet credit.
func (s *service) Return(ctx context.Context, input ReturnInput) (*ReturnResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return items cannot be empty")
	}
	for _, item := range input.Items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "return item name required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "return quantity must be at least 1")
		}
		if strings.TrimSpace(item.Reason) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
		}
	}

	var result *ReturnResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "returns require a delivered order")
		}

		delivered := make(map[string]models.OrderItem, len(order.Items))
		for _, item := range order.Items {
			delivered[item.Name] = item
		}
		prior, err := repo.SumReturnedQuantities(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prior returns")
		}

		totalValue := decimal.Zero
		returns := make([]models.OrderReturn, 0, len(input.Items))
		requested := map[string]int{}
		for _, line := range input.Items {
			item, ok := delivered[line.Name]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %q not found in order", line.Name))
			}
			requested[line.Name] += line.Quantity
			if prior[line.Name]+requested[line.Name] > item.Quantity {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("return of %q exceeds delivered quantity", line.Name))
			}
			lineValue := item.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			totalValue = totalValue.Add(lineValue)
			returns = append(returns, models.OrderReturn{
				OrderID:   order.ID,
				Name:      line.Name,
				Quantity:  line.Quantity,
				UnitPrice: item.UnitPrice,
				Reason:    line.Reason,
			})
		}

		settlement, err := s.ledger.SettleReturn(ctx, tx, order.CustomerID, order.ID.String(), totalValue)
		if err != nil {
			return err
		}
		if err := repo.AppendReturns(ctx, returns); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record returns")
		}

		result = &ReturnResult{
			PendingReduced: settlement.PendingReduced,
			WalletCredited: settlement.WalletCredited,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReturned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         buildActor(input.ActorID, input.ActorRole),
			Data: OrderReturnedEvent{
				OrderID:        order.ID,
				CustomerID:     order.CustomerID,
				TotalValue:     totalValue,
				PendingReduced: settlement.PendingReduced,
				WalletCredited: settlement.WalletCredited,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncReturn()
	return result, nil
}

// Get loads an order with its items, history and returns. Customers can only
// see their own orders.
func (s *service) Get(ctx context.Context, orderID, requesterID uuid.UUID, role enums.ActorRole) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if role != enums.ActorRoleAdmin && order.CustomerID != requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	list, err := s.repo.ListByCustomer(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func buildItems(inputs []ItemInput) ([]models.OrderItem, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order items cannot be empty")
	}
	items := make([]models.OrderItem, 0, len(inputs))
	total := decimal.Zero
	for _, input := range inputs {
		if strings.TrimSpace(input.Name) == "" {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		if input.Quantity < 1 {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
		}
		if input.UnitPrice.IsNegative() {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "item unit price cannot be negative")
		}
		item := models.OrderItem{
			MedicineID: input.MedicineID,
			Name:       input.Name,
			UnitPrice:  input.UnitPrice,
			Quantity:   input.Quantity,
		}
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}
	return items, total, nil
}

func transitionEventType(status enums.OrderStatus) enums.OutboxEventType {
	switch status {
	case enums.OrderStatusProcessing:
		return enums.EventOrderAccepted
	case enums.OrderStatusShipped:
		return enums.EventOrderShipped
	case enums.OrderStatusDelivered:
		return enums.EventOrderDelivered
	default:
		return enums.EventOrderCancelled
	}
}

func buildActor(actorID uuid.UUID, role enums.ActorRole) *outbox.ActorRef {
	return &outbox.ActorRef{
		ActorID: actorID,
		Role:    role.String(),
	}
}
