package enums

import "fmt"

// WalletEntryType classifies an append-only wallet history entry.
type WalletEntryType string

const (
	// WalletEntryTypeOrderUsage records pre-paid credit consumed when an
	// order is created.
	WalletEntryTypeOrderUsage WalletEntryType = "order_usage"
	// WalletEntryTypeReturnAdjustment records value settled back after a
	// post-delivery return.
	WalletEntryTypeReturnAdjustment WalletEntryType = "return_adjustment"
	// WalletEntryTypePayment records an approved payment reducing dues.
	WalletEntryTypePayment WalletEntryType = "payment"
)

var validWalletEntryTypes = []WalletEntryType{
	WalletEntryTypeOrderUsage,
	WalletEntryTypeReturnAdjustment,
	WalletEntryTypePayment,
}

// String implements fmt.Stringer.
func (w WalletEntryType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletEntryType.
func (w WalletEntryType) IsValid() bool {
	for _, candidate := range validWalletEntryTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletEntryType converts raw input into a WalletEntryType.
func ParseWalletEntryType(value string) (WalletEntryType, error) {
	for _, candidate := range validWalletEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet entry type %q", value)
}
