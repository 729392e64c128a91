// Package domain contains persistence models for per-unit fee overrides.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UnitFeeOverride replaces a fee type's default amount or unit price for one
// unit. One override per (unit, fee type).
type UnitFeeOverride struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id,string"`
	CompanyID       snowflake.ID `gorm:"not null;index" json:"company_id,string"`
	UnitID          snowflake.ID `gorm:"not null;uniqueIndex:uq_unit_fee_overrides_unit_fee,priority:1" json:"unit_id,string"`
	FeeTypeID       snowflake.ID `gorm:"not null;uniqueIndex:uq_unit_fee_overrides_unit_fee,priority:2" json:"fee_type_id,string"`
	CustomAmount    *float64     `gorm:"" json:"custom_amount,omitempty"`
	CustomUnitPrice *float64     `gorm:"" json:"custom_unit_price,omitempty"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UnitFeeOverride) TableName() string { return "unit_fee_overrides" }
