package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
)

// ProofURLOfflineCash is the sentinel proof reference recorded on
// admin-entered cash payments, which have no uploaded receipt.
const ProofURLOfflineCash = "offline-cash"

// Payment is a proof-based request to reduce a customer's due balance. Cash
// payments are created pre-approved; online payments go through admin review.
type Payment struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	Amount             decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method             enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status             enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	TransactionID      *string             `gorm:"column:transaction_id"`
	ProofURL           string              `gorm:"column:proof_url;not null"`
	RejectionReason    *string             `gorm:"column:rejection_reason"`
	CanReupload        bool                `gorm:"column:can_reupload;not null;default:false"`
	OriginalDueAmount  *decimal.Decimal    `gorm:"column:original_due_amount;type:numeric(12,2)"`
	RemainingDueAmount *decimal.Decimal    `gorm:"column:remaining_due_amount;type:numeric(12,2)"`
	AuditLogs          []PaymentAuditLog   `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
