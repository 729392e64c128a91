// Package domain contains persistence models for monthly billings.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingStatus represents billing lifecycle states. Cancelled is set by an
// operator and never derived from amounts.
type BillingStatus string

const (
	BillingStatusPending   BillingStatus = "pending"
	BillingStatusPartial   BillingStatus = "partial"
	BillingStatusPaid      BillingStatus = "paid"
	BillingStatusOverdue   BillingStatus = "overdue"
	BillingStatusCancelled BillingStatus = "cancelled"
)

// Billing is one unit's invoice for one billing month.
type Billing struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id,string"`
	CompanyID     snowflake.ID  `gorm:"not null;index" json:"company_id,string"`
	LeaseID       snowflake.ID  `gorm:"not null;index" json:"lease_id,string"`
	UnitID        snowflake.ID  `gorm:"not null;uniqueIndex:uq_billings_unit_month,priority:1" json:"unit_id,string"`
	TenantID      snowflake.ID  `gorm:"not null;index" json:"tenant_id,string"`
	BillingNumber string        `gorm:"type:text;not null" json:"billing_number"`
	BillingMonth  string        `gorm:"type:text;not null;uniqueIndex:uq_billings_unit_month,priority:2" json:"billing_month"`
	IssueDate     time.Time     `gorm:"not null" json:"issue_date"`
	DueDate       time.Time     `gorm:"not null" json:"due_date"`
	Subtotal      float64       `gorm:"not null;default:0" json:"subtotal"`
	TaxAmount     float64       `gorm:"not null;default:0" json:"tax_amount"`
	TotalAmount   float64       `gorm:"not null;default:0" json:"total_amount"`
	PaidAmount    float64       `gorm:"not null;default:0" json:"paid_amount"`
	Status        BillingStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	Notes         string        `gorm:"type:text;not null;default:''" json:"notes"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []BillingItem `gorm:"-" json:"items,omitempty"`
}

// TableName sets the database table name.
func (Billing) TableName() string { return "billings" }

// BillingItem is a line on a billing. FeeTypeID is nil for the rent line.
type BillingItem struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id,string"`
	BillingID      snowflake.ID  `gorm:"not null;index" json:"billing_id,string"`
	FeeTypeID      *snowflake.ID `gorm:"index" json:"fee_type_id,string,omitempty"`
	MeterReadingID *snowflake.ID `gorm:"index" json:"meter_reading_id,string,omitempty"`
	FeeName        string        `gorm:"type:text;not null" json:"fee_name"`
	Quantity       float64       `gorm:"not null;default:1" json:"quantity"`
	UnitPrice      float64       `gorm:"not null;default:0" json:"unit_price"`
	Amount         float64       `gorm:"not null;default:0" json:"amount"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillingItem) TableName() string { return "billing_items" }

// ParseBillingMonth validates a YYYY-MM billing month and returns the first
// day of that month in UTC.
func ParseBillingMonth(raw string) (time.Time, error) {
	month, err := time.Parse("2006-01", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid billing month %q: expected YYYY-MM", raw)
	}
	return month.UTC(), nil
}

// NumberPrefix returns the billing-number prefix for a month, e.g.
// "INV-202508-" for prefix "INV" and month "2025-08".
func NumberPrefix(prefix, billingMonth string) string {
	compact := strings.ReplaceAll(strings.TrimSpace(billingMonth), "-", "")
	return fmt.Sprintf("%s-%s-", strings.TrimSpace(prefix), compact)
}

// FormatBillingNumber renders a full billing number with a zero-padded
// sequence, e.g. "INV-202508-0001".
func FormatBillingNumber(prefix, billingMonth string, seq int64, digits int) string {
	if digits <= 0 {
		digits = 4
	}
	return fmt.Sprintf("%s%0*d", NumberPrefix(prefix, billingMonth), digits, seq)
}
