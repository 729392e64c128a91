// Package domain contains persistence models for properties and units.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Property is a building or estate managed by a company.
type Property struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id,string"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Address   string       `gorm:"type:text;not null;default:''" json:"address"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Property) TableName() string { return "properties" }

// Unit is a rentable space inside a property. AreaSqm is optional; per-sqm
// fees resolve to zero when it is absent.
type Unit struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id,string"`
	CompanyID  snowflake.ID `gorm:"not null;index" json:"company_id,string"`
	PropertyID snowflake.ID `gorm:"not null;index" json:"property_id,string"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	AreaSqm    *float64     `gorm:"" json:"area_sqm,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Unit) TableName() string { return "units" }
