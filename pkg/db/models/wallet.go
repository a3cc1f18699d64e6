package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a customer's pre-paid credit and the running totals mirrored
// from the customer ledger. PendingBalance is always recomputed from
// Customer.DueAmount and is never authoritative on its own.
type Wallet struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;uniqueIndex"`
	WalletBalance  decimal.Decimal `gorm:"column:wallet_balance;type:numeric(12,2);not null;default:0"`
	TotalPaid      decimal.Decimal `gorm:"column:total_paid;type:numeric(12,2);not null;default:0"`
	TotalDue       decimal.Decimal `gorm:"column:total_due;type:numeric(12,2);not null;default:0"`
	PendingBalance decimal.Decimal `gorm:"column:pending_balance;type:numeric(12,2);not null;default:0"`
	Entries        []WalletEntry   `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
