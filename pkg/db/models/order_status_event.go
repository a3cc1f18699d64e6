package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
)

// OrderStatusEvent is one append-only row of an order's status history. Every
// transition writes exactly one row, including the initial pending entry.
type OrderStatusEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
