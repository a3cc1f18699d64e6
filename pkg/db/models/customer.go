package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is the canonical identity entity and the source of truth for the
// outstanding due balance. DueAmount is only ever adjusted by the order and
// payment engines, never set directly.
type Customer struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string          `gorm:"column:name;not null"`
	Email        string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	Phone        *string         `gorm:"column:phone"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	DueAmount    decimal.Decimal `gorm:"column:due_amount;type:numeric(12,2);not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
