// Package domain contains persistence models and the consumption calculator
// for metered utilities.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MeterReading records one month's meter state for a unit and fee type.
// Rows are immutable once written; corrections are new readings for the same
// month, and the most recent one wins at billing time.
type MeterReading struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id,string"`
	CompanyID       snowflake.ID `gorm:"not null;index" json:"company_id,string"`
	UnitID          snowflake.ID `gorm:"not null;index:idx_meter_readings_unit_fee_month,priority:1" json:"unit_id,string"`
	FeeTypeID       snowflake.ID `gorm:"not null;index:idx_meter_readings_unit_fee_month,priority:2" json:"fee_type_id,string"`
	BillingMonth    string       `gorm:"type:text;not null;index:idx_meter_readings_unit_fee_month,priority:3" json:"billing_month"`
	PreviousReading float64      `gorm:"not null;default:0" json:"previous_reading"`
	CurrentReading  float64      `gorm:"not null;default:0" json:"current_reading"`
	Consumption     float64      `gorm:"not null;default:0" json:"consumption"`
	UnitPrice       float64      `gorm:"not null;default:0" json:"unit_price"`
	TotalAmount     float64      `gorm:"not null;default:0" json:"total_amount"`
	ReadingDate     *time.Time   `gorm:"" json:"reading_date,omitempty"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (MeterReading) TableName() string { return "meter_readings" }
