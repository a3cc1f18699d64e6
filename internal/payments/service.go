package payments

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
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

const (
	auditActionSubmitted  = "submitted"
	auditActionApproved   = "approved"
	auditActionRejected   = "rejected"
	auditActionReuploaded = "reuploaded"
)

// SubmitInput captures a customer's online payment request.
type SubmitInput struct {
	CustomerID    uuid.UUID
	Amount        decimal.Decimal
	ProofURL      string
	TransactionID *string
}

// OfflineInput captures an admin-entered cash payment.
type OfflineInput struct {
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	ActorID    uuid.UUID
}

// ReuploadInput captures a customer's replacement proof after a rejection.
type ReuploadInput struct {
	PaymentID     uuid.UUID
	CustomerID    uuid.UUID
	ProofURL      string
	TransactionID *string
}

// PaymentList wraps the paginated payments plus the next page cursor.
type PaymentList struct {
	Payments   []models.Payment `json:"payments"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// PaymentDecisionEvent is emitted when a payment is submitted or decided.
type PaymentDecisionEvent struct {
	PaymentID  uuid.UUID           `json:"payment_id"`
	CustomerID uuid.UUID           `json:"customer_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Method     enums.PaymentMethod `json:"method"`
	Status     enums.PaymentStatus `json:"status"`
}

// Service defines the payment approval workflow.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Payment, error)
	SubmitOffline(ctx context.Context, input OfflineInput) (*models.Payment, error)
	Approve(ctx context.Context, paymentID, actorID uuid.UUID) (*models.Payment, error)
	Reject(ctx context.Context, paymentID uuid.UUID, reason string, actorID uuid.UUID) (*models.Payment, error)
	Reupload(ctx context.Context, input ReuploadInput) (*models.Payment, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*PaymentList, error)
}

type service struct {
	repo      Repository
	customers customers.Repository
	ledger    ledger.Service
	tx        txRunner
	outbox    outboxPublisher
	metrics   *metrics.LifecycleMetrics
}

// NewService builds a payment service with the required dependencies. The
// metrics recorder may be nil.
func NewService(repo Repository, customerRepo customers.Repository, ledgerSvc ledger.Service, tx txRunner, publisher outboxPublisher, recorder *metrics.LifecycleMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
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

// Submit records a customer's online payment for admin review. The amount is
// bound by the due balance at submission time.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Payment, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(input.ProofURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment proof required")
	}

	var created *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customer, err := s.lockCustomer(ctx, tx, input.CustomerID)
		if err != nil {
			return err
		}
		if input.Amount.GreaterThan(customer.DueAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment amount exceeds due balance")
		}

		repo := s.repo.WithTx(tx)
		payment := &models.Payment{
			CustomerID:    input.CustomerID,
			Amount:        input.Amount,
			Method:        enums.PaymentMethodOnline,
			Status:        enums.PaymentStatusPending,
			TransactionID: input.TransactionID,
			ProofURL:      input.ProofURL,
		}
		if _, err := repo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := s.audit(ctx, repo, payment.ID, enums.ActorRoleCustomer, input.CustomerID,
			auditActionSubmitted, fmt.Sprintf("online payment of %s submitted", input.Amount)); err != nil {
			return err
		}

		created = payment
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSubmitted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{ActorID: input.CustomerID, Role: enums.ActorRoleCustomer.String()},
			Data:          decisionEvent(payment),
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SubmitOffline records an admin-entered cash payment. Cash has no review
// step: the payment is created approved and settles immediately.
func (s *service) SubmitOffline(ctx context.Context, input OfflineInput) (*models.Payment, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	var created *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customer, err := s.lockCustomer(ctx, tx, input.CustomerID)
		if err != nil {
			return err
		}
		if input.Amount.GreaterThan(customer.DueAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment amount exceeds due balance")
		}

		repo := s.repo.WithTx(tx)
		payment := &models.Payment{
			CustomerID: input.CustomerID,
			Amount:     input.Amount,
			Method:     enums.PaymentMethodCash,
			Status:     enums.PaymentStatusApproved,
			ProofURL:   models.ProofURLOfflineCash,
		}
		if _, err := repo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		settlement, err := s.ledger.SettlePayment(ctx, tx, input.CustomerID, payment.ID.String(), input.Amount)
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, payment.ID, map[string]any{
			"original_due_amount":  settlement.OriginalDue,
			"remaining_due_amount": settlement.RemainingDue,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record settlement snapshots")
		}
		payment.OriginalDueAmount = &settlement.OriginalDue
		payment.RemainingDueAmount = &settlement.RemainingDue

		if err := s.audit(ctx, repo, payment.ID, enums.ActorRoleAdmin, input.ActorID,
			auditActionApproved, fmt.Sprintf("cash payment of %s recorded and settled", input.Amount)); err != nil {
			return err
		}

		created = payment
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentApproved,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID, Role: enums.ActorRoleAdmin.String()},
			Data:          decisionEvent(payment),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPaymentDecision(enums.PaymentStatusApproved.String())
	return created, nil
}

// Approve settles a pending online payment against the customer's due
// balance, snapshotting the before and after due amounts on the payment.
func (s *service) Approve(ctx context.Context, paymentID, actorID uuid.UUID) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := s.lockPayment(ctx, repo, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment is %s, only pending payments can be approved", payment.Status))
		}

		settlement, err := s.ledger.SettlePayment(ctx, tx, payment.CustomerID, payment.ID.String(), payment.Amount)
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, payment.ID, map[string]any{
			"status":               enums.PaymentStatusApproved,
			"original_due_amount":  settlement.OriginalDue,
			"remaining_due_amount": settlement.RemainingDue,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve payment")
		}
		payment.Status = enums.PaymentStatusApproved
		payment.OriginalDueAmount = &settlement.OriginalDue
		payment.RemainingDueAmount = &settlement.RemainingDue

		if err := s.audit(ctx, repo, payment.ID, enums.ActorRoleAdmin, actorID,
			auditActionApproved, fmt.Sprintf("payment approved, due %s -> %s", settlement.OriginalDue, settlement.RemainingDue)); err != nil {
			return err
		}

		updated = payment
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentApproved,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{ActorID: actorID, Role: enums.ActorRoleAdmin.String()},
			Data:          decisionEvent(payment),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPaymentDecision(enums.PaymentStatusApproved.String())
	return updated, nil
}

// Reject marks a pending payment rejected with a mandatory reason and opens
// the reupload window. No ledger mutation happens.
func (s *service) Reject(ctx context.Context, paymentID uuid.UUID, reason string, actorID uuid.UUID) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := s.lockPayment(ctx, repo, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment is %s, only pending payments can be rejected", payment.Status))
		}

		if err := repo.Update(ctx, payment.ID, map[string]any{
			"status":           enums.PaymentStatusRejected,
			"rejection_reason": reason,
			"can_reupload":     true,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject payment")
		}
		payment.Status = enums.PaymentStatusRejected
		payment.RejectionReason = &reason
		payment.CanReupload = true

		if err := s.audit(ctx, repo, payment.ID, enums.ActorRoleAdmin, actorID,
			auditActionRejected, reason); err != nil {
			return err
		}

		updated = payment
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRejected,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{ActorID: actorID, Role: enums.ActorRoleAdmin.String()},
			Data:          decisionEvent(payment),
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPaymentDecision(enums.PaymentStatusRejected.String())
	return updated, nil
}

// Reupload replaces the proof on a rejected payment and puts it back in the
// review queue.
func (s *service) Reupload(ctx context.Context, input ReuploadInput) (*models.Payment, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if strings.TrimSpace(input.ProofURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment proof required")
	}

	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := s.lockPayment(ctx, repo, input.PaymentID)
		if err != nil {
			return err
		}
		if payment.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to customer")
		}
		if payment.Status != enums.PaymentStatusRejected {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment is %s, only rejected payments can be reuploaded", payment.Status))
		}

		updates := map[string]any{
			"status":           enums.PaymentStatusPending,
			"proof_url":        input.ProofURL,
			"rejection_reason": nil,
			"can_reupload":     false,
		}
		if input.TransactionID != nil {
			updates["transaction_id"] = *input.TransactionID
			payment.TransactionID = input.TransactionID
		}
		if err := repo.Update(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reupload payment proof")
		}
		payment.Status = enums.PaymentStatusPending
		payment.ProofURL = input.ProofURL
		payment.RejectionReason = nil
		payment.CanReupload = false

		if err := s.audit(ctx, repo, payment.ID, enums.ActorRoleCustomer, input.CustomerID,
			auditActionReuploaded, "replacement proof uploaded"); err != nil {
			return err
		}

		updated = payment
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSubmitted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{ActorID: input.CustomerID, Role: enums.ActorRoleCustomer.String()},
			Data:          decisionEvent(payment),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*PaymentList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	list, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return list, nil
}

func (s *service) lockCustomer(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.customers.WithTx(tx).FindByIDForUpdate(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func (s *service) lockPayment(ctx context.Context, repo Repository, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := repo.FindByIDForUpdate(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) audit(ctx context.Context, repo Repository, paymentID uuid.UUID, role enums.ActorRole, actorID uuid.UUID, action, detail string) error {
	log := &models.PaymentAuditLog{
		PaymentID: paymentID,
		ActorRole: role,
		ActorID:   actorID,
		Action:    action,
		Detail:    detail,
	}
	if err := repo.AppendAuditLog(ctx, log); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit log")
	}
	return nil
}

func decisionEvent(payment *models.Payment) PaymentDecisionEvent {
	return PaymentDecisionEvent{
		PaymentID:  payment.ID,
		CustomerID: payment.CustomerID,
		Amount:     payment.Amount,
		Method:     payment.Method,
		Status:     payment.Status,
	}
}
