// Package calc holds the pure billing math: fee evaluation, aggregation and
// status resolution. Nothing in here touches the database or the clock.
package calc

import (
	"time"

	billingdomain "github.com/propline/propline/internal/billing/domain"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	meterreadingdomain "github.com/propline/propline/internal/meterreading/domain"
	unitfeedomain "github.com/propline/propline/internal/unitfee/domain"
)

// FeeAmount evaluates one fee for one unit. Missing configuration resolves to
// zero; unknown calculation types resolve to zero. It never fails.
//
// Rules per calculation type:
//   - fixed: the unit's custom amount, else the fee's default amount.
//   - per_sqm: (custom unit price, else default unit price) times the unit
//     area; no area means zero.
//   - metered: the stored reading's total amount; no reading means zero.
//   - custom: the unit's custom amount only; there is no default.
func FeeAmount(
	fee feetypedomain.FeeType,
	areaSqm *float64,
	override *unitfeedomain.UnitFeeOverride,
	reading *meterreadingdomain.MeterReading,
) float64 {
	switch fee.CalculationType {
	case feetypedomain.CalculationFixed:
		if override != nil && override.CustomAmount != nil {
			return *override.CustomAmount
		}
		if fee.DefaultAmount != nil {
			return *fee.DefaultAmount
		}
		return 0

	case feetypedomain.CalculationPerSqm:
		if areaSqm == nil {
			return 0
		}
		unitPrice := 0.0
		if override != nil && override.CustomUnitPrice != nil {
			unitPrice = *override.CustomUnitPrice
		} else if fee.DefaultUnitPrice != nil {
			unitPrice = *fee.DefaultUnitPrice
		}
		return unitPrice * *areaSqm

	case feetypedomain.CalculationMetered:
		if reading == nil {
			return 0
		}
		return reading.TotalAmount

	case feetypedomain.CalculationCustom:
		if override != nil && override.CustomAmount != nil {
			return *override.CustomAmount
		}
		return 0

	default:
		return 0
	}
}

// MeteredEstimate recomputes a metered amount from consumption and unit
// price. Generation uses the stored total; this exists for previews.
func MeteredEstimate(consumption, unitPrice float64) float64 {
	return consumption * unitPrice
}

// Total sums line amounts and adds the tax pass-through.
func Total(items []billingdomain.BillingItem, taxAmount float64) (subtotal, total float64) {
	for _, item := range items {
		subtotal += item.Amount
	}
	return subtotal, subtotal + taxAmount
}

// Outstanding returns the unpaid remainder, floored at zero so overpayment
// never reports a negative balance.
func Outstanding(totalAmount, paidAmount float64) float64 {
	outstanding := totalAmount - paidAmount
	if outstanding < 0 {
		return 0
	}
	return outstanding
}

// ResolveStatus derives a billing status from amounts and dates. Callers must
// not invoke it for cancelled billings; cancellation is operator-driven and
// sticky.
func ResolveStatus(totalAmount, paidAmount float64, dueDate, now time.Time) billingdomain.BillingStatus {
	if paidAmount >= totalAmount {
		return billingdomain.BillingStatusPaid
	}
	if now.After(dueDate) {
		return billingdomain.BillingStatusOverdue
	}
	if paidAmount > 0 {
		return billingdomain.BillingStatusPartial
	}
	return billingdomain.BillingStatusPending
}
