package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shivanand-vn/SVPharma-sub000/internal/customers"
	"github.com/shivanand-vn/SVPharma-sub000/internal/wallets"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/db/models"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
	pkgerrors "github.com/shivanand-vn/SVPharma-sub000/pkg/errors"
)

// ReturnSettlement reports how a return's value was split between the due
// balance and wallet credit.
type ReturnSettlement struct {
	PendingReduced decimal.Decimal
	WalletCredited decimal.Decimal
}

// PaymentSettlement captures the due snapshots taken when a payment is applied.
type PaymentSettlement struct {
	OriginalDue  decimal.Decimal
	RemainingDue decimal.Decimal
}

// Service is the financial reconciliation engine. Every method runs inside
// the caller's transaction and locks the customer and wallet rows, so at most
// one ledger mutation per customer is in flight at a time. The customer row
// is authoritative for due; the wallet row is authoritative for credit;
// pending_balance is always rewritten from due before the method returns.
type Service interface {
	EnsureWallet(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Wallet, error)
	ConsumeForOrder(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, orderRef string, total decimal.Decimal) (decimal.Decimal, error)
	ApplyAcceptance(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amountToAdd decimal.Decimal) error
	SettleReturn(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, orderRef string, totalValue decimal.Decimal) (*ReturnSettlement, error)
	SettlePayment(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, paymentRef string, amount decimal.Decimal) (*PaymentSettlement, error)
	Reconcile(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error
}

type service struct {
	customers customers.Repository
	wallets   wallets.Repository
}

// NewService wires the reconciliation engine with its repositories.
func NewService(customerRepo customers.Repository, walletRepo wallets.Repository) (Service, error) {
	if customerRepo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if walletRepo == nil {
		return nil, fmt.Errorf("wallets repository required")
	}
	return &service{customers: customerRepo, wallets: walletRepo}, nil
}

// EnsureWallet loads the customer's wallet under lock, creating the row on
// first use.
func (s *service) EnsureWallet(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Wallet, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.wallets.WithTx(tx)
	wallet, err := repo.FindByCustomerIDForUpdate(ctx, customerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	wallet, err = repo.Create(ctx, &models.Wallet{CustomerID: customerID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return wallet, nil
}

// ConsumeForOrder spends wallet credit against a new order's total and
// returns the amount consumed. It never touches the due balance.
func (s *service) ConsumeForOrder(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, orderRef string, total decimal.Decimal) (decimal.Decimal, error) {
	if total.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order total cannot be negative")
	}
	wallet, err := s.EnsureWallet(ctx, tx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	if !wallet.WalletBalance.IsPositive() {
		return decimal.Zero, nil
	}

	used := decimal.Min(total, wallet.WalletBalance)
	if !used.IsPositive() {
		return decimal.Zero, nil
	}
	newBalance := wallet.WalletBalance.Sub(used)

	repo := s.wallets.WithTx(tx)
	if err := repo.Update(ctx, wallet.ID, map[string]any{"wallet_balance": newBalance}); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
	}
	entry := &models.WalletEntry{
		WalletID:     wallet.ID,
		Type:         enums.WalletEntryTypeOrderUsage,
		Amount:       used,
		Reference:    orderRef,
		BalanceAfter: newBalance,
	}
	if err := repo.CreateEntry(ctx, entry); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet usage")
	}
	return used, nil
}

// ApplyAcceptance charges the customer for an accepted order. This is the
// only path that increases the due balance.
func (s *service) ApplyAcceptance(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amountToAdd decimal.Decimal) error {
	if amountToAdd.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge amount cannot be negative")
	}
	customer, wallet, err := s.lockLedger(ctx, tx, customerID)
	if err != nil {
		return err
	}

	newDue := customer.DueAmount.Add(amountToAdd)
	newTotalDue := wallet.TotalDue.Add(amountToAdd)

	if err := s.customers.WithTx(tx).UpdateDueAmount(ctx, customer.ID, newDue); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update due amount")
	}
	if err := s.wallets.WithTx(tx).Update(ctx, wallet.ID, map[string]any{
		"total_due":       newTotalDue,
		"pending_balance": newDue,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync wallet totals")
	}
	return nil
}

// SettleReturn applies a return's value due-first, then spills the remainder
// to wallet credit, and records a return_adjustment history entry. Zero-value
// returns, such as free sample lines, record the entry without moving money.
func (s *service) SettleReturn(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, orderRef string, totalValue decimal.Decimal) (*ReturnSettlement, error) {
	if totalValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return value cannot be negative")
	}
	customer, wallet, err := s.lockLedger(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	pendingReduced := decimal.Min(totalValue, customer.DueAmount)
	credited := totalValue.Sub(pendingReduced)
	newDue := customer.DueAmount.Sub(pendingReduced)
	newTotalDue := wallet.TotalDue.Sub(pendingReduced)
	newBalance := wallet.WalletBalance.Add(credited)

	if err := s.customers.WithTx(tx).UpdateDueAmount(ctx, customer.ID, newDue); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update due amount")
	}
	repo := s.wallets.WithTx(tx)
	if err := repo.Update(ctx, wallet.ID, map[string]any{
		"wallet_balance":  newBalance,
		"total_due":       newTotalDue,
		"pending_balance": newDue,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync wallet totals")
	}
	entry := &models.WalletEntry{
		WalletID:     wallet.ID,
		Type:         enums.WalletEntryTypeReturnAdjustment,
		Amount:       totalValue,
		Reference:    orderRef,
		BalanceAfter: newBalance,
	}
	if err := repo.CreateEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record return adjustment")
	}
	return &ReturnSettlement{PendingReduced: pendingReduced, WalletCredited: credited}, nil
}

// SettlePayment applies an approved payment against the due balance, floored
// at zero, and records a payment history entry whose balance_after carries
// the post-settlement pending balance.
func (s *service) SettlePayment(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, paymentRef string, amount decimal.Decimal) (*PaymentSettlement, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	customer, wallet, err := s.lockLedger(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	originalDue := customer.DueAmount
	newDue := decimal.Max(decimal.Zero, originalDue.Sub(amount))
	newTotalPaid := wallet.TotalPaid.Add(amount)

	if err := s.customers.WithTx(tx).UpdateDueAmount(ctx, customer.ID, newDue); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update due amount")
	}
	repo := s.wallets.WithTx(tx)
	if err := repo.Update(ctx, wallet.ID, map[string]any{
		"total_paid":      newTotalPaid,
		"pending_balance": newDue,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync wallet totals")
	}
	entry := &models.WalletEntry{
		WalletID:     wallet.ID,
		Type:         enums.WalletEntryTypePayment,
		Amount:       amount,
		Reference:    paymentRef,
		BalanceAfter: newDue,
	}
	if err := repo.CreateEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment entry")
	}
	return &PaymentSettlement{OriginalDue: originalDue, RemainingDue: newDue}, nil
}

// Reconcile rewrites the wallet's pending_balance from the customer's due
// amount. The mirror is never written in the other direction.
func (s *service) Reconcile(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error {
	customer, wallet, err := s.lockLedger(ctx, tx, customerID)
	if err != nil {
		return err
	}
	if wallet.PendingBalance.Equal(customer.DueAmount) {
		return nil
	}
	return s.wallets.WithTx(tx).Update(ctx, wallet.ID, map[string]any{
		"pending_balance": customer.DueAmount,
	})
}

func (s *service) lockLedger(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Customer, *models.Wallet, error) {
	if tx == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if customerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	customer, err := s.customers.WithTx(tx).FindByIDForUpdate(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	wallet, err := s.EnsureWallet(ctx, tx, customerID)
	if err != nil {
		return nil, nil, err
	}
	return customer, wallet, nil
}
