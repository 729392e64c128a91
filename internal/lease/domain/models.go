// Package domain contains persistence models for tenants and leases.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LeaseStatus represents lease lifecycle states.
type LeaseStatus string

const (
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusEnded      LeaseStatus = "ended"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

// Tenant is a renter registered with a company.
type Tenant struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id,string"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Phone     string       `gorm:"type:text;not null;default:''" json:"phone"`
	Email     string       `gorm:"type:text;not null;default:''" json:"email"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Lease binds a tenant to a unit with a monthly rent.
type Lease struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id,string"`
	CompanyID   snowflake.ID `gorm:"not null;index" json:"company_id,string"`
	UnitID      snowflake.ID `gorm:"not null;index" json:"unit_id,string"`
	TenantID    snowflake.ID `gorm:"not null;index" json:"tenant_id,string"`
	StartDate   time.Time    `gorm:"not null" json:"start_date"`
	EndDate     *time.Time   `gorm:"" json:"end_date,omitempty"`
	MonthlyRent float64      `gorm:"not null;default:0" json:"monthly_rent"`
	Status      LeaseStatus  `gorm:"type:text;not null;default:'active'" json:"status"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Lease) TableName() string { return "leases" }
