package enums

import "fmt"

// BillStatus tracks the lifecycle of a billing obligation.
type BillStatus string

const (
	BillStatusPending BillStatus = "pending"
	BillStatusPaid    BillStatus = "paid"
	BillStatusFailed  BillStatus = "failed"
)

var validBillStatuses = []BillStatus{
	BillStatusPending,
	BillStatusPaid,
	BillStatusFailed,
}

// String implements fmt.Stringer.
func (b BillStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillStatus.
func (b BillStatus) IsValid() bool {
	for _, candidate := range validBillStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
// Paid is absolute; Failed can move back to Pending when a new intent is attached.
func (b BillStatus) IsTerminal() bool {
	return b == BillStatusPaid
}

// CanTransitionTo reports whether the state machine allows moving to next.
// Allowed: pending->paid, pending->failed, failed->pending.
func (b BillStatus) CanTransitionTo(next BillStatus) bool {
	switch b {
	case BillStatusPending:
		return next == BillStatusPaid || next == BillStatusFailed
	case BillStatusFailed:
		return next == BillStatusPending
	default:
		return false
	}
}

// ParseBillStatus converts raw input into a BillStatus.
func ParseBillStatus(value string) (BillStatus, error) {
	for _, candidate := range validBillStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bill status %q", value)
}
