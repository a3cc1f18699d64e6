package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItemSnapshot preserves one order line exactly as it was before the
// first admin modification, so the customer can always compare against the
// original order.
type OrderItemSnapshot struct {
	MedicineID *uuid.UUID      `json:"medicine_id,omitempty"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
}

// OrderItemSnapshots is the jsonb column shape for the one-time original
// items capture.
type OrderItemSnapshots []OrderItemSnapshot

// Value implements driver.Valuer so snapshots can be written through map
// updates as well as struct saves.
func (s OrderItemSnapshots) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *OrderItemSnapshots) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported snapshot column type %T", value)
	}
}
