// Package domain contains persistence models for fee configuration.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CalculationType selects how a fee amount is derived.
type CalculationType string

const (
	CalculationFixed   CalculationType = "fixed"
	CalculationPerSqm  CalculationType = "per_sqm"
	CalculationMetered CalculationType = "metered"
	CalculationCustom  CalculationType = "custom"
)

// FeeType represents a recurring charge configured by a company.
type FeeType struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id,string"`
	CompanyID        snowflake.ID    `gorm:"not null;uniqueIndex:uq_fee_types_company_code,priority:1" json:"company_id,string"`
	Code             string          `gorm:"type:text;not null;uniqueIndex:uq_fee_types_company_code,priority:2" json:"code"`
	Name             string          `gorm:"type:text;not null" json:"name"`
	CalculationType  CalculationType `gorm:"type:text;not null" json:"calculation_type"`
	DefaultAmount    *float64        `gorm:"" json:"default_amount,omitempty"`
	DefaultUnitPrice *float64        `gorm:"" json:"default_unit_price,omitempty"`
	UnitLabel        string          `gorm:"type:text;not null;default:''" json:"unit_label"`
	DisplayOrder     int             `gorm:"not null;default:0" json:"display_order"`
	IsActive         bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (FeeType) TableName() string { return "fee_types" }
