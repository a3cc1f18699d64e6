package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
)

// PaymentAuditLog records one structured audit entry for a payment action.
// The trail is append-only; rows are never edited or deleted.
type PaymentAuditLog struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;index"`
	ActorRole enums.ActorRole `gorm:"column:actor_role;type:actor_role;not null"`
	ActorID   uuid.UUID       `gorm:"column:actor_id;type:uuid;not null"`
	Action    string          `gorm:"column:action;not null"`
	Detail    string          `gorm:"column:detail;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
