package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingdomain "github.com/propline/propline/internal/billing/domain"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/companyctx"
	"github.com/propline/propline/internal/config"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	leasedomain "github.com/propline/propline/internal/lease/domain"
	leaseservice "github.com/propline/propline/internal/lease/service"
	meterreadingdomain "github.com/propline/propline/internal/meterreading/domain"
	propertydomain "github.com/propline/propline/internal/property/domain"
	unitfeedomain "github.com/propline/propline/internal/unitfee/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func f64(v float64) *float64 { return &v }

type billingFixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	clk       *clock.FakeClock
	svc       billingdomain.Service
	companyID snowflake.ID
}

func setupBillingFixture(t *testing.T) *billingFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&propertydomain.Property{},
		&propertydomain.Unit{},
		&leasedomain.Tenant{},
		&leasedomain.Lease{},
		&feetypedomain.FeeType{},
		&unitfeedomain.UnitFeeOverride{},
		&meterreadingdomain.MeterReading{},
		&billingdomain.Billing{},
		&billingdomain.BillingItem{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	leaseSvc := leaseservice.NewService(leaseservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
	})

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      clk,
		BillingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		LeaseSvc:   leaseSvc,
	})

	return &billingFixture{
		db:        db,
		node:      node,
		clk:       clk,
		svc:       svc,
		companyID: node.Generate(),
	}
}

func (f *billingFixture) ctx() context.Context {
	return companyctx.WithCompanyID(context.Background(), int64(f.companyID))
}

// genReq builds a generation request with the dates every run must carry:
// issued today, due two weeks out.
func (f *billingFixture) genReq(month string) billingdomain.GenerateBillingRequest {
	issue := f.clk.Now().Truncate(24 * time.Hour)
	due := issue.AddDate(0, 0, 14)
	return billingdomain.GenerateBillingRequest{
		BillingMonth: month,
		IssueDate:    &issue,
		DueDate:      &due,
	}
}

func (f *billingFixture) seedLease(t *testing.T, unitName string, areaSqm *float64, monthlyRent float64) (snowflake.ID, snowflake.ID) {
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
		Name: unitName, AreaSqm: areaSqm,
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	tenantID := f.node.Generate()
	require.NoError(t, f.db.Create(&leasedomain.Tenant{
		ID: tenantID, CompanyID: f.companyID, Name: "Tenant " + unitName,
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	leaseID := f.node.Generate()
	require.NoError(t, f.db.Create(&leasedomain.Lease{
		ID: leaseID, CompanyID: f.companyID, UnitID: unitID, TenantID: tenantID,
		StartDate: now.AddDate(0, -6, 0), MonthlyRent: monthlyRent,
		Status:    leasedomain.LeaseStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	return unitID, leaseID
}

func (f *billingFixture) seedFeeType(t *testing.T, code string, calc feetypedomain.CalculationType, defaultAmount, defaultUnitPrice *float64) snowflake.ID {
	t.Helper()

	now := f.clk.Now()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&feetypedomain.FeeType{
		ID: id, CompanyID: f.companyID, Code: code, Name: code,
		CalculationType: calc, DefaultAmount: defaultAmount, DefaultUnitPrice: defaultUnitPrice,
		IsActive:  true,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	return id
}

func (f *billingFixture) seedReading(t *testing.T, unitID, feeTypeID snowflake.ID, month string, previous, current, unitPrice float64) snowflake.ID {
	t.Helper()

	consumption := current - previous
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&meterreadingdomain.MeterReading{
		ID: id, CompanyID: f.companyID, UnitID: unitID, FeeTypeID: feeTypeID,
		BillingMonth:    month,
		PreviousReading: previous, CurrentReading: current,
		Consumption: consumption, UnitPrice: unitPrice,
		TotalAmount: consumption * unitPrice,
		CreatedAt:   f.clk.Now(),
	}).Error)
	return id
}

func TestGenerate_BuildsBillingWithFeeLines(t *testing.T) {
	f := setupBillingFixture(t)
	ctx := f.ctx()

	unitID, _ := f.seedLease(t, "A-101", f64(40), 1500000)
	f.seedFeeType(t, "security", feetypedomain.CalculationFixed, f64(50000), nil)
	f.seedFeeType(t, "maintenance", feetypedomain.CalculationPerSqm, nil, f64(300))
	waterID := f.seedFeeType(t, "water", feetypedomain.CalculationMetered, nil, nil)
	// No default amount, no override: resolves to zero and is dropped.
	f.seedFeeType(t, "parking", feetypedomain.CalculationCustom, nil, nil)

	readingID := f.seedReading(t, unitID, waterID, "2025-08", 100, 108, 1250)

	resp, err := f.svc.Generate(ctx, f.genReq("2025-08"))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Generated)
	assert.Equal(t, 0, resp.Skipped)
	assert.Equal(t, 0, resp.Failed)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "INV-202508-0001", resp.Results[0].Number)

	var billing billingdomain.Billing
	require.NoError(t, f.db.Where("unit_id = ? AND billing_month = ?", unitID, "2025-08").First(&billing).Error)
	assert.Equal(t, "INV-202508-0001", billing.BillingNumber)
	assert.Equal(t, 1572000.0, billing.Subtotal)
	assert.Equal(t, 0.0, billing.TaxAmount)
	assert.Equal(t, 1572000.0, billing.TotalAmount)
	assert.Equal(t, billingdomain.BillingStatusPending, billing.Status)

	// The requested dates are stored as-is.
	assert.Equal(t, billing.IssueDate.AddDate(0, 0, 14), billing.DueDate)

	var items []billingdomain.BillingItem
	require.NoError(t, f.db.Where("billing_id = ?", billing.ID).Order("id asc").Find(&items).Error)
	require.Len(t, items, 4)

	byName := make(map[string]billingdomain.BillingItem, len(items))
	for _, item := range items {
		byName[item.FeeName] = item
	}

	rent := byName["Monthly Rent"]
	assert.Nil(t, rent.FeeTypeID)
	assert.Equal(t, 1500000.0, rent.Amount)

	assert.Equal(t, 50000.0, byName["security"].Amount)
	assert.Equal(t, 12000.0, byName["maintenance"].Amount)

	water := byName["water"]
	assert.Equal(t, 10000.0, water.Amount)
	assert.Equal(t, 8.0, water.Quantity)
	assert.Equal(t, 1250.0, water.UnitPrice)
	require.NotNil(t, water.MeterReadingID)
	assert.Equal(t, readingID, *water.MeterReadingID)
}

func TestGenerate_AppliesOverridesAndTax(t *testing.T) {
	f := setupBillingFixture(t)
	f.svc = NewService(ServiceParam{
		DB:    f.db,
		Log:   zap.NewNop(),
		GenID: f.node,
		Clock: f.clk,
		BillingCfg: config.NewStaticBillingConfigHolder(config.BillingConfig{
			NumberPrefix:   "INV",
			SequenceDigits: 4,
			TaxRate:        0.1,
			DefaultDueDays: 14,
		}),
		LeaseSvc: leaseservice.NewService(leaseservice.ServiceParam{
			DB: f.db, Log: zap.NewNop(), GenID: f.node, Clock: f.clk,
		}),
	})
	ctx := f.ctx()

	unitID, _ := f.seedLease(t, "B-201", f64(40), 1000000)
	securityID := f.seedFeeType(t, "security", feetypedomain.CalculationFixed, f64(50000), nil)

	now := f.clk.Now()
	require.NoError(t, f.db.Create(&unitfeedomain.UnitFeeOverride{
		ID: f.node.Generate(), CompanyID: f.companyID,
		UnitID: unitID, FeeTypeID: securityID,
		CustomAmount: f64(45000),
		CreatedAt:    now, UpdatedAt: now,
	}).Error)

	resp, err := f.svc.Generate(ctx, f.genReq("2025-08"))
	require.NoError(t, err)
	require.Equal(t, 1, resp.Generated)

	var billing billingdomain.Billing
	require.NoError(t, f.db.Where("unit_id = ?", unitID).First(&billing).Error)
	assert.Equal(t, 1045000.0, billing.Subtotal)
	assert.Equal(t, 104500.0, billing.TaxAmount)
	assert.Equal(t, 1149500.0, billing.TotalAmount)
}

func TestGenerate_MeteredLineKeptAtZeroConsumption(t *testing.T) {
	f := setupBillingFixture(t)
	ctx := f.ctx()

	unitID, _ := f.seedLease(t, "C-301", nil, 800000)
	waterID := f.seedFeeType(t, "water", feetypedomain.CalculationMetered, nil, nil)
	f.seedReading(t, unitID, waterID, "2025-08", 200, 200, 1250)

	resp, err := f.svc.Generate(ctx, f.genReq("2025-08"))
	require.NoError(t, err)
	require.Equal(t, 1, resp.Generated)

	var billing billingdomain.Billing
	require.NoError(t, f.db.Where("unit_id = ?", unitID).First(&billing).Error)

	var items []billingdomain.BillingItem
	require.NoError(t, f.db.Where("billing_id = ?", billing.ID).Find(&items).Error)
	require.Len(t, items, 2)

	var water *billingdomain.BillingItem
	for i := range items {
		if items[i].FeeName == "water" {
			water = &items[i]
		}
	}
	require.NotNil(t, water, "zero-consumption metered line must still be present")
	assert.Equal(t, 0.0, water.Amount)
	assert.Equal(t, 0.0, water.Quantity)
}

func TestGenerate_MeteredFeeDroppedWithoutReading(t *testing.T) {
	f := setupBillingFixture(t)
	ctx := f.ctx()

	unitID, _ := f.seedLease(t, "D-401", nil, 800000)
	f.seedFeeType(t, "water", feetypedomain.CalculationMetered, nil, nil)

	resp, err := f.svc.Generate(ctx, f.genReq("2025-08"))
	require.NoError(t, err)
	require.Equal(t, 1, resp.Generated)

	var billing billingdomain.Billing
	require.NoError(t, f.db.Where("unit_id = ?", unitID).First(&billing).Error)

	var items []billingdomain.BillingItem
	require.NoError(t, f.db.Where("billing_id = ?", billing.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, "Monthly Rent", items[0].FeeName)
	assert.Equal(t, 800000.0, billing.Subtotal)
}

func TestGenerate_SecondRunSkipsBilledUnits(t *testing.T) {
	f := setupBillingFixture(t)
	ctx := f.ctx()

	f.seedLease(t, "A-101", nil, 1000000)
	f.seedLease(t, "A-102", nil, 1200000)

	resp, err := f.svc.Generate(ctx, f.genReq("2025-08"))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Generated)

	_, err = f.svc.Generate(ctx, f.genReq("2025-08"))
	assert.ErrorIs(t, err, billingdomain.ErrAllUnitsBilled)

	// A lease signed after the first run is picked up; the rest are skipped.
	f.seedLease(t, "A-103", nil, 900000)
	resp, err = f.svc.Generate(ctx, f.genReq("2025-08"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)
	assert.Equal(t, 2, resp.Skipped)
	assert.Equal(t, 0, resp.Failed)
}

func TestGenerate_SequenceContinuesAcrossRuns(t *testing.T) {
	f := setupBillingFixture(t)
	ctx := f.ctx()

	f.seedLease(t, "A-101", nil, 1000000)
	f.seedLease(t, "A-102", nil, 1000000)

	resp, err := f.svc.Generate(ctx, f.genReq("2025-08"))
	require.NoError(t, err)
	require.Equal(t, 2, resp.Generated)

	f.seedLease(t, "A-103", nil, 1000000)
	resp, err = f.svc.Generate(ctx, f.genReq("2025-08"))
	require.NoError(t, err)
	require.Equal(t, 1, resp.Generated)

	var numbers []string
	require.NoError(t, f.db.Raw(
		`SELECT billing_number FROM billings WHERE company_id = ? ORDER BY billing_number`,
		f.companyID,
	).Scan(&numbers).Error)
	assert.Equal(t, []string{"INV-202508-0001", "INV-202508-0002", "INV-202508-0003"}, numbers)

	// A different month starts its own sequence.
	resp, err = f.svc.Generate(ctx, f.genReq("2025-09"))
	require.NoError(t, err)
	require.Equal(t, 3, resp.Generated)

	var septNumbers []string
	require.NoError(t, f.db.Raw(
		`SELECT billing_number FROM billings WHERE company_id = ? AND billing_month = ? ORDER BY billing_number`,
		f.companyID, "2025-09",
	).Scan(&septNumbers).Error)
	assert.Equal(t, []string{"INV-202509-0001", "INV-202509-0002", "INV-202509-0003"}, septNumbers)
}

func TestGenerate_RestrictsToRequestedUnits(t *testing.T) {
	f := setupBillingFixture(t)
	ctx := f.ctx()

	unitA, _ := f.seedLease(t, "A-101", nil, 1000000)
	f.seedLease(t, "A-102", nil, 1200000)

	req := f.genReq("2025-08")
	req.UnitIDs = []string{unitA.String()}
	resp, err := f.svc.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)

	var count int64
	require.NoError(t, f.db.Model(&billingdomain.Billing{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGenerate_RestrictsToRequestedProperties(t *testing.T) {
	f := setupBillingFixture(t)
	ctx := f.ctx()

	unitA, _ := f.seedLease(t, "A-101", nil, 1000000)
	f.seedLease(t, "B-201", nil, 1200000)

	var propertyID snowflake.ID
	require.NoError(t, f.db.Raw(`SELECT property_id FROM units WHERE id = ?`, unitA).Scan(&propertyID).Error)

	req := f.genReq("2025-08")
	req.PropertyIDs = []string{propertyID.String()}
	resp, err := f.svc.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)

	var unitIDs []snowflake.ID
	require.NoError(t, f.db.Raw(`SELECT unit_id FROM billings`).Scan(&unitIDs).Error)
	assert.Equal(t, []snowflake.ID{unitA}, unitIDs)
}

func TestGenerate_RestrictsToRequestedLeases(t *testing.T) {
	f := setupBillingFixture(t)
	ctx := f.ctx()

	unitA, leaseA := f.seedLease(t, "A-101", nil, 1000000)
	f.seedLease(t, "A-102", nil, 1200000)

	req := f.genReq("2025-08")
	req.LeaseIDs = []string{leaseA.String()}
	resp, err := f.svc.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)

	var billing billingdomain.Billing
	require.NoError(t, f.db.First(&billing).Error)
	assert.Equal(t, unitA, billing.UnitID)
	assert.Equal(t, leaseA, billing.LeaseID)
}

func TestGenerate_LatestReadingWinsForMonth(t *testing.T) {
	f := setupBillingFixture(t)
	ctx := f.ctx()

	unitID, _ := f.seedLease(t, "A-101", nil, 1000000)
	waterID := f.seedFeeType(t, "water", feetypedomain.CalculationMetered, nil, nil)

	// A correction recorded after the first reading supersedes it.
	f.seedReading(t, unitID, waterID, "2025-08", 100, 108, 1250)
	correctedID := f.seedReading(t, unitID, waterID, "2025-08", 100, 110, 1250)

	resp, err := f.svc.Generate(ctx, f.genReq("2025-08"))
	require.NoError(t, err)
	require.Equal(t, 1, resp.Generated)

	var billing billingdomain.Billing
	require.NoError(t, f.db.Where("unit_id = ?", unitID).First(&billing).Error)

	var items []billingdomain.BillingItem
	require.NoError(t, f.db.Where("billing_id = ? AND fee_type_id = ?", billing.ID, waterID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, 10.0, items[0].Quantity)
	assert.Equal(t, 12500.0, items[0].Amount)
	require.NotNil(t, items[0].MeterReadingID)
	assert.Equal(t, correctedID, *items[0].MeterReadingID)
}

func TestGenerate_NoActiveLeases(t *testing.T) {
	f := setupBillingFixture(t)

	_, err := f.svc.Generate(f.ctx(), f.genReq("2025-08"))
	assert.ErrorIs(t, err, billingdomain.ErrNoActiveLeases)
}

func TestGenerate_EndedLeaseExcluded(t *testing.T) {
	f := setupBillingFixture(t)
	ctx := f.ctx()

	_, leaseID := f.seedLease(t, "A-101", nil, 1000000)
	require.NoError(t, f.db.Model(&leasedomain.Lease{}).
		Where("id = ?", leaseID).
		Update("status", leasedomain.LeaseStatusEnded).Error)

	_, err := f.svc.Generate(ctx, f.genReq("2025-08"))
	assert.ErrorIs(t, err, billingdomain.ErrNoActiveLeases)
}

func TestGenerate_InvalidMonth(t *testing.T) {
	f := setupBillingFixture(t)
	f.seedLease(t, "A-101", nil, 1000000)

	_, err := f.svc.Generate(f.ctx(), billingdomain.GenerateBillingRequest{BillingMonth: "08-2025"})
	assert.Error(t, err)
}

func TestGenerate_DueBeforeIssueRejected(t *testing.T) {
	f := setupBillingFixture(t)
	f.seedLease(t, "A-101", nil, 1000000)

	issue := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	due := issue.AddDate(0, 0, -1)
	_, err := f.svc.Generate(f.ctx(), billingdomain.GenerateBillingRequest{
		BillingMonth: "2025-08",
		IssueDate:    &issue,
		DueDate:      &due,
	})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidIssueDueOrder)
}

func TestGenerate_MissingDatesRejected(t *testing.T) {
	f := setupBillingFixture(t)
	f.seedLease(t, "A-101", nil, 1000000)

	req := f.genReq("2025-08")
	req.IssueDate = nil
	_, err := f.svc.Generate(f.ctx(), req)
	assert.ErrorIs(t, err, billingdomain.ErrMissingIssueDate)

	req = f.genReq("2025-08")
	req.DueDate = nil
	_, err = f.svc.Generate(f.ctx(), req)
	assert.ErrorIs(t, err, billingdomain.ErrMissingDueDate)

	// Rejected before any work: nothing was written.
	var count int64
	require.NoError(t, f.db.Model(&billingdomain.Billing{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestGenerate_MissingCompanyContext(t *testing.T) {
	f := setupBillingFixture(t)

	_, err := f.svc.Generate(context.Background(), billingdomain.GenerateBillingRequest{BillingMonth: "2025-08"})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidCompany)
}
