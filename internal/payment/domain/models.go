// Package domain contains the append-only payment ledger models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Payment is one received payment against a billing. Rows are never updated
// or deleted; the billing's paid amount is always recomputed from the sum.
type Payment struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id,string"`
	CompanyID     snowflake.ID      `gorm:"not null;index" json:"company_id,string"`
	BillingID     snowflake.ID      `gorm:"not null;index" json:"billing_id,string"`
	Amount        float64           `gorm:"not null" json:"amount"`
	PaymentDate   time.Time         `gorm:"not null" json:"payment_date"`
	PaymentMethod string            `gorm:"type:text;not null;default:''" json:"payment_method"`
	Reference     string            `gorm:"type:text;not null;default:''" json:"reference"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
