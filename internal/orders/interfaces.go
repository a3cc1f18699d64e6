package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shivanand-vn/SVPharma-sub000/pkg/db/models"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/pagination"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error
	AppendStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error
	AppendReturns(ctx context.Context, returns []models.OrderReturn) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	SumReturnedQuantities(ctx context.Context, orderID uuid.UUID) (map[string]int, error)
}

// ListFilters describe the inputs supported by the order list.
type ListFilters struct {
	Status *enums.OrderStatus
}
