package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
)

// ItemInput is one requested order line, either at creation or as an admin
// modification during acceptance.
type ItemInput struct {
	MedicineID *uuid.UUID
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
}

// CreateOrderInput captures a customer's new order request.
type CreateOrderInput struct {
	CustomerID uuid.UUID
	Items      []ItemInput
}

// TransitionInput is the tagged payload for an admin status change. Exactly
// the fields relevant to the target status are honored.
type TransitionInput struct {
	OrderID         uuid.UUID
	TargetStatus    enums.OrderStatus
	ModifiedItems   []ItemInput // processing only, optional
	Reason          string      // cancelled only, required
	DeliverySlipURL string      // delivered only, required
	ActorID         uuid.UUID
	ActorRole       enums.ActorRole
}

// ReturnItemInput is one line of an admin return request.
type ReturnItemInput struct {
	Name     string
	Quantity int
	Reason   string
}

// ReturnInput captures an admin return request against a delivered order.
type ReturnInput struct {
	OrderID   uuid.UUID
	Items     []ReturnItemInput
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// ReturnResult reports the due-first-then-credit split of a processed return.
type ReturnResult struct {
	PendingReduced decimal.Decimal `json:"pending_reduced"`
	WalletCredited decimal.Decimal `json:"wallet_credited"`
}

// OrderSummary exposes the aggregated fields returned in the customer list.
type OrderSummary struct {
	ID            uuid.UUID                `json:"id"`
	Status        enums.OrderStatus        `json:"status"`
	TotalPrice    decimal.Decimal          `json:"total_price"`
	PaymentStatus enums.OrderPaymentStatus `json:"payment_status"`
	TotalItems    int                      `json:"total_items"`
	CreatedAt     time.Time                `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
