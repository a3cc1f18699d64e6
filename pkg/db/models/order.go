package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/types"
)

// Order belongs to exactly one customer and is mutated only by the
// admin-driven state machine. Orders are never deleted; cancelled and
// delivered orders remain as the audit trail.
type Order struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	Status             enums.OrderStatus        `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalPrice         decimal.Decimal          `gorm:"column:total_price;type:numeric(12,2);not null"`
	WalletAmountUsed   decimal.Decimal          `gorm:"column:wallet_amount_used;type:numeric(12,2);not null;default:0"`
	PaymentStatus      enums.OrderPaymentStatus `gorm:"column:payment_status;type:order_payment_status;not null;default:'unpaid'"`
	IsAdminModified    bool                     `gorm:"column:is_admin_modified;not null;default:false"`
	OriginalTotalPrice *decimal.Decimal         `gorm:"column:original_total_price;type:numeric(12,2)"`
	OriginalItems      types.OrderItemSnapshots `gorm:"column:original_items;type:jsonb"`
	CancellationReason *string                  `gorm:"column:cancellation_reason"`
	DeliverySlipURL    *string                  `gorm:"column:delivery_slip_url"`
	Items              []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusEvents       []OrderStatusEvent       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Returns            []OrderReturn            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
