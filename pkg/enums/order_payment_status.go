package enums

// OrderPaymentStatus records whether wallet credit fully covered an order at
// creation time.
type OrderPaymentStatus string

const (
	OrderPaymentStatusUnpaid OrderPaymentStatus = "unpaid"
	OrderPaymentStatusPaid   OrderPaymentStatus = "paid"
)

// String implements fmt.Stringer.
func (o OrderPaymentStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderPaymentStatus.
func (o OrderPaymentStatus) IsValid() bool {
	return o == OrderPaymentStatusUnpaid || o == OrderPaymentStatusPaid
}
