package calc

import (
	"testing"
	"time"

	billingdomain "github.com/propline/propline/internal/billing/domain"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	meterreadingdomain "github.com/propline/propline/internal/meterreading/domain"
	unitfeedomain "github.com/propline/propline/internal/unitfee/domain"
	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func TestFeeAmount_Fixed(t *testing.T) {
	fee := feetypedomain.FeeType{
		CalculationType: feetypedomain.CalculationFixed,
		DefaultAmount:   f64(50000),
	}

	assert.Equal(t, 50000.0, FeeAmount(fee, nil, nil, nil))

	override := &unitfeedomain.UnitFeeOverride{CustomAmount: f64(45000)}
	assert.Equal(t, 45000.0, FeeAmount(fee, nil, override, nil))

	// Override row without a custom amount falls back to the default.
	assert.Equal(t, 50000.0, FeeAmount(fee, nil, &unitfeedomain.UnitFeeOverride{}, nil))

	fee.DefaultAmount = nil
	assert.Equal(t, 0.0, FeeAmount(fee, nil, nil, nil))
}

func TestFeeAmount_PerSqm(t *testing.T) {
	fee := feetypedomain.FeeType{
		CalculationType:  feetypedomain.CalculationPerSqm,
		DefaultUnitPrice: f64(300),
	}

	assert.Equal(t, 12000.0, FeeAmount(fee, f64(40), nil, nil))

	override := &unitfeedomain.UnitFeeOverride{CustomUnitPrice: f64(250)}
	assert.Equal(t, 10000.0, FeeAmount(fee, f64(40), override, nil))

	// No recorded area resolves to zero, never an error.
	assert.Equal(t, 0.0, FeeAmount(fee, nil, nil, nil))

	fee.DefaultUnitPrice = nil
	assert.Equal(t, 0.0, FeeAmount(fee, f64(40), nil, nil))
}

func TestFeeAmount_Metered(t *testing.T) {
	fee := feetypedomain.FeeType{CalculationType: feetypedomain.CalculationMetered}

	// The stored total is authoritative, not consumption times price.
	reading := &meterreadingdomain.MeterReading{
		Consumption: 8,
		UnitPrice:   1250,
		TotalAmount: 10000,
	}
	assert.Equal(t, 10000.0, FeeAmount(fee, nil, nil, reading))

	assert.Equal(t, 0.0, FeeAmount(fee, nil, nil, nil))
}

func TestFeeAmount_Custom(t *testing.T) {
	fee := feetypedomain.FeeType{
		CalculationType: feetypedomain.CalculationCustom,
		DefaultAmount:   f64(99999),
	}

	// Custom fees never fall back to the fee type default.
	assert.Equal(t, 0.0, FeeAmount(fee, nil, nil, nil))

	override := &unitfeedomain.UnitFeeOverride{CustomAmount: f64(25000)}
	assert.Equal(t, 25000.0, FeeAmount(fee, nil, override, nil))
}

func TestFeeAmount_UnknownType(t *testing.T) {
	fee := feetypedomain.FeeType{CalculationType: "percentage"}
	assert.Equal(t, 0.0, FeeAmount(fee, f64(40), nil, nil))
}

func TestMeteredEstimate(t *testing.T) {
	assert.Equal(t, 10000.0, MeteredEstimate(8, 1250))
	assert.Equal(t, 0.0, MeteredEstimate(0, 1250))
}

func TestTotal(t *testing.T) {
	items := []billingdomain.BillingItem{
		{FeeName: "Security", Amount: 50000},
		{FeeName: "Maintenance", Amount: 12000},
		{FeeName: "Water", Amount: 10000},
	}

	subtotal, total := Total(items, 0)
	assert.Equal(t, 72000.0, subtotal)
	assert.Equal(t, 72000.0, total)

	subtotal, total = Total(items, 7200)
	assert.Equal(t, 72000.0, subtotal)
	assert.Equal(t, 79200.0, total)

	subtotal, total = Total(nil, 0)
	assert.Equal(t, 0.0, subtotal)
	assert.Equal(t, 0.0, total)
}

func TestOutstanding(t *testing.T) {
	assert.Equal(t, 42000.0, Outstanding(72000, 30000))
	assert.Equal(t, 0.0, Outstanding(72000, 72000))

	// Overpayment never reports a negative balance.
	assert.Equal(t, 0.0, Outstanding(72000, 80000))
}

func TestResolveStatus(t *testing.T) {
	due := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	beforeDue := due.Add(-48 * time.Hour)
	afterDue := due.Add(48 * time.Hour)

	assert.Equal(t, billingdomain.BillingStatusPending, ResolveStatus(72000, 0, due, beforeDue))
	assert.Equal(t, billingdomain.BillingStatusPartial, ResolveStatus(72000, 30000, due, beforeDue))
	assert.Equal(t, billingdomain.BillingStatusPaid, ResolveStatus(72000, 72000, due, beforeDue))
	assert.Equal(t, billingdomain.BillingStatusOverdue, ResolveStatus(72000, 0, due, afterDue))

	// Paid wins over overdue: full payment after the due date is still paid.
	assert.Equal(t, billingdomain.BillingStatusPaid, ResolveStatus(72000, 72000, due, afterDue))

	// Partial payment past due shows overdue, not partial.
	assert.Equal(t, billingdomain.BillingStatusOverdue, ResolveStatus(72000, 30000, due, afterDue))

	// Overpayment resolves to paid.
	assert.Equal(t, billingdomain.BillingStatusPaid, ResolveStatus(72000, 80000, due, beforeDue))

	// Due date itself is not overdue yet.
	assert.Equal(t, billingdomain.BillingStatusPending, ResolveStatus(72000, 0, due, due))

	// Zero-total billings resolve to paid immediately.
	assert.Equal(t, billingdomain.BillingStatusPaid, ResolveStatus(0, 0, due, beforeDue))
}
