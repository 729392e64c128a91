package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ActiveLease is a lease joined with its unit and tenant, the shape billing
// generation works from.
type ActiveLease struct {
	LeaseID     snowflake.ID `json:"lease_id,string"`
	UnitID      snowflake.ID `json:"unit_id,string"`
	UnitName    string       `json:"unit_name"`
	AreaSqm     *float64     `json:"area_sqm,omitempty"`
	TenantID    snowflake.ID `json:"tenant_id,string"`
	TenantName  string       `json:"tenant_name"`
	MonthlyRent float64      `json:"monthly_rent"`
}

type ListLeaseRequest struct {
	Status string `form:"status"`
}

type ListLeaseResponse struct {
	Leases []Lease `json:"leases"`
}

type CreateTenantRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type CreateLeaseRequest struct {
	UnitID      string     `json:"unit_id" binding:"required"`
	TenantID    string     `json:"tenant_id" binding:"required"`
	StartDate   time.Time  `json:"start_date" binding:"required"`
	EndDate     *time.Time `json:"end_date"`
	MonthlyRent float64    `json:"monthly_rent"`
}

// ActiveLeaseFilter narrows the active-lease join. Empty slices mean no
// restriction; multiple filters combine with AND.
type ActiveLeaseFilter struct {
	UnitIDs     []snowflake.ID
	PropertyIDs []snowflake.ID
	LeaseIDs    []snowflake.ID
}

type Service interface {
	List(ctx context.Context, req ListLeaseRequest) (ListLeaseResponse, error)
	CreateTenant(ctx context.Context, req CreateTenantRequest) (Tenant, error)
	CreateLease(ctx context.Context, req CreateLeaseRequest) (Lease, error)
	EndLease(ctx context.Context, id string) (Lease, error)

	// ListActiveLeases returns active leases joined with unit and tenant,
	// optionally restricted by unit, property, or lease IDs.
	ListActiveLeases(ctx context.Context, filter ActiveLeaseFilter) ([]ActiveLease, error)
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrLeaseNotFound  = errors.New("lease_not_found")
	ErrTenantNotFound = errors.New("tenant_not_found")
	ErrUnitOccupied   = errors.New("unit_already_leased")
)
