package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
)

// WalletEntry is one immutable line of the wallet history. Rows are only ever
// appended, never edited or deleted.
type WalletEntry struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID     uuid.UUID             `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type         enums.WalletEntryType `gorm:"column:type;type:wallet_entry_type;not null"`
	Amount       decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Reference    string                `gorm:"column:reference;not null"`
	BalanceAfter decimal.Decimal       `gorm:"column:balance_after;type:numeric(12,2);not null"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}
