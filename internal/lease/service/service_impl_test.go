package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/companyctx"
	leasedomain "github.com/propline/propline/internal/lease/domain"
	propertydomain "github.com/propline/propline/internal/property/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type leaseFixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	clk       *clock.FakeClock
	svc       leasedomain.Service
	companyID snowflake.ID
}

func setupLeaseFixture(t *testing.T) *leaseFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&propertydomain.Property{},
		&propertydomain.Unit{},
		&leasedomain.Tenant{},
		&leasedomain.Lease{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})

	return &leaseFixture{
		db:        db,
		node:      node,
		clk:       clk,
		svc:       svc,
		companyID: node.Generate(),
	}
}

func (f *leaseFixture) ctx() context.Context {
	return companyctx.WithCompanyID(context.Background(), int64(f.companyID))
}

func (f *leaseFixture) seedUnit(t *testing.T, name string, areaSqm *float64) snowflake.ID {
	t.Helper()

	now := f.clk.Now()
	propertyID := f.node.Generate()
	require.NoError(t, f.db.Create(&propertydomain.Property{
		ID: propertyID, CompanyID: f.companyID, Name: "Green Residence",
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	unitID := f.node.Generate()
	require.NoError(t, f.db.Create(&propertydomain.Unit{
		ID: unitID, CompanyID: f.companyID, PropertyID: propertyID,
		Name: name, AreaSqm: areaSqm,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	return unitID
}

func TestCreateLease_SecondActiveLeaseRejected(t *testing.T) {
	f := setupLeaseFixture(t)
	ctx := f.ctx()
	unitID := f.seedUnit(t, "A-101", nil)

	tenant, err := f.svc.CreateTenant(ctx, leasedomain.CreateTenantRequest{Name: "Alex"})
	require.NoError(t, err)
	other, err := f.svc.CreateTenant(ctx, leasedomain.CreateTenantRequest{Name: "Sam"})
	require.NoError(t, err)

	lease, err := f.svc.CreateLease(ctx, leasedomain.CreateLeaseRequest{
		UnitID:      unitID.String(),
		TenantID:    tenant.ID.String(),
		StartDate:   f.clk.Now(),
		MonthlyRent: 1000000,
	})
	require.NoError(t, err)
	assert.Equal(t, leasedomain.LeaseStatusActive, lease.Status)

	_, err = f.svc.CreateLease(ctx, leasedomain.CreateLeaseRequest{
		UnitID:    unitID.String(),
		TenantID:  other.ID.String(),
		StartDate: f.clk.Now(),
	})
	assert.ErrorIs(t, err, leasedomain.ErrUnitOccupied)

	// Ending the first lease frees the unit.
	_, err = f.svc.EndLease(ctx, lease.ID.String())
	require.NoError(t, err)

	_, err = f.svc.CreateLease(ctx, leasedomain.CreateLeaseRequest{
		UnitID:      unitID.String(),
		TenantID:    other.ID.String(),
		StartDate:   f.clk.Now(),
		MonthlyRent: 1100000,
	})
	require.NoError(t, err)
}

func TestEndLease_SetsStatusAndEndDate(t *testing.T) {
	f := setupLeaseFixture(t)
	ctx := f.ctx()
	unitID := f.seedUnit(t, "A-101", nil)

	tenant, err := f.svc.CreateTenant(ctx, leasedomain.CreateTenantRequest{Name: "Alex"})
	require.NoError(t, err)
	lease, err := f.svc.CreateLease(ctx, leasedomain.CreateLeaseRequest{
		UnitID:    unitID.String(),
		TenantID:  tenant.ID.String(),
		StartDate: f.clk.Now(),
	})
	require.NoError(t, err)

	f.clk.Advance(30 * 24 * time.Hour)
	ended, err := f.svc.EndLease(ctx, lease.ID.String())
	require.NoError(t, err)
	assert.Equal(t, leasedomain.LeaseStatusEnded, ended.Status)
	require.NotNil(t, ended.EndDate)
}

func TestListActiveLeases_JoinsUnitAndTenant(t *testing.T) {
	f := setupLeaseFixture(t)
	ctx := f.ctx()

	area := 40.0
	unitA := f.seedUnit(t, "A-101", &area)
	unitB := f.seedUnit(t, "B-202", nil)

	tenant, err := f.svc.CreateTenant(ctx, leasedomain.CreateTenantRequest{Name: "Alex"})
	require.NoError(t, err)
	other, err := f.svc.CreateTenant(ctx, leasedomain.CreateTenantRequest{Name: "Sam"})
	require.NoError(t, err)

	_, err = f.svc.CreateLease(ctx, leasedomain.CreateLeaseRequest{
		UnitID: unitA.String(), TenantID: tenant.ID.String(),
		StartDate: f.clk.Now(), MonthlyRent: 1500000,
	})
	require.NoError(t, err)
	leaseB, err := f.svc.CreateLease(ctx, leasedomain.CreateLeaseRequest{
		UnitID: unitB.String(), TenantID: other.ID.String(),
		StartDate: f.clk.Now(), MonthlyRent: 900000,
	})
	require.NoError(t, err)

	active, err := f.svc.ListActiveLeases(ctx, leasedomain.ActiveLeaseFilter{})
	require.NoError(t, err)
	require.Len(t, active, 2)

	assert.Equal(t, "A-101", active[0].UnitName)
	assert.Equal(t, "Alex", active[0].TenantName)
	require.NotNil(t, active[0].AreaSqm)
	assert.Equal(t, 40.0, *active[0].AreaSqm)
	assert.Equal(t, 1500000.0, active[0].MonthlyRent)

	assert.Equal(t, "B-202", active[1].UnitName)
	assert.Nil(t, active[1].AreaSqm)

	// Restricting to one unit filters the join.
	active, err = f.svc.ListActiveLeases(ctx, leasedomain.ActiveLeaseFilter{UnitIDs: []snowflake.ID{unitB}})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, leaseB.ID, active[0].LeaseID)

	// So does the unit's property.
	var propertyB snowflake.ID
	require.NoError(t, f.db.Raw(`SELECT property_id FROM units WHERE id = ?`, unitB).Scan(&propertyB).Error)
	active, err = f.svc.ListActiveLeases(ctx, leasedomain.ActiveLeaseFilter{PropertyIDs: []snowflake.ID{propertyB}})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B-202", active[0].UnitName)

	// And an explicit lease ID.
	active, err = f.svc.ListActiveLeases(ctx, leasedomain.ActiveLeaseFilter{LeaseIDs: []snowflake.ID{leaseB.ID}})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, leaseB.ID, active[0].LeaseID)

	// Ended leases drop out.
	_, err = f.svc.EndLease(ctx, leaseB.ID.String())
	require.NoError(t, err)
	active, err = f.svc.ListActiveLeases(ctx, leasedomain.ActiveLeaseFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A-101", active[0].UnitName)
}
