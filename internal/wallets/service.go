package wallets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shivanand-vn/SVPharma-sub000/pkg/db/models"
	pkgerrors "github.com/shivanand-vn/SVPharma-sub000/pkg/errors"
)

// WalletDetail bundles a wallet with its full history.
type WalletDetail struct {
	Wallet  models.Wallet        `json:"wallet"`
	Entries []models.WalletEntry `json:"entries"`
}

// Service exposes read operations over a customer's wallet.
type Service interface {
	Get(ctx context.Context, customerID uuid.UUID) (*WalletDetail, error)
}

type service struct {
	repo Repository
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallets repository required")
	}
	return &service{repo: repo}, nil
}

// Get returns the customer's wallet and history. A customer that has never
// had a financial operation gets an empty wallet view rather than an error.
func (s *service) Get(ctx context.Context, customerID uuid.UUID) (*WalletDetail, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	wallet, err := s.repo.FindByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &WalletDetail{Wallet: models.Wallet{CustomerID: customerID}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	entries, err := s.repo.ListEntries(ctx, wallet.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet history")
	}
	return &WalletDetail{Wallet: *wallet, Entries: entries}, nil
}
