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
	paymentdomain "github.com/propline/propline/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type paymentFixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	clk       *clock.FakeClock
	svc       paymentdomain.Service
	companyID snowflake.ID
}

func setupPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&billingdomain.Billing{},
		&billingdomain.BillingItem{},
		&paymentdomain.Payment{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC))
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})

	return &paymentFixture{
		db:        db,
		node:      node,
		clk:       clk,
		svc:       svc,
		companyID: node.Generate(),
	}
}

func (f *paymentFixture) ctx() context.Context {
	return companyctx.WithCompanyID(context.Background(), int64(f.companyID))
}

func (f *paymentFixture) seedBilling(t *testing.T, total float64, dueDate time.Time, status billingdomain.BillingStatus) snowflake.ID {
	t.Helper()

	now := f.clk.Now()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&billingdomain.Billing{
		ID:            id,
		CompanyID:     f.companyID,
		LeaseID:       f.node.Generate(),
		UnitID:        f.node.Generate(),
		TenantID:      f.node.Generate(),
		BillingNumber: fmt.Sprintf("INV-202508-%04d", id%10000),
		BillingMonth:  "2025-08",
		IssueDate:     now,
		DueDate:       dueDate,
		Subtotal:      total,
		TotalAmount:   total,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error)
	return id
}

func TestRecord_PartialThenPaid(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := f.ctx()
	due := f.clk.Now().AddDate(0, 0, 14)
	billingID := f.seedBilling(t, 72000, due, billingdomain.BillingStatusPending)

	resp, err := f.svc.Record(ctx, paymentdomain.RecordPaymentRequest{
		BillingID:     billingID.String(),
		Amount:        30000,
		PaymentMethod: "bank_transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, 30000.0, resp.Billing.PaidAmount)
	assert.Equal(t, billingdomain.BillingStatusPartial, resp.Billing.Status)
	assert.Equal(t, 30000.0, resp.Payment.Amount)

	resp, err = f.svc.Record(ctx, paymentdomain.RecordPaymentRequest{
		BillingID: billingID.String(),
		Amount:    42000,
	})
	require.NoError(t, err)
	assert.Equal(t, 72000.0, resp.Billing.PaidAmount)
	assert.Equal(t, billingdomain.BillingStatusPaid, resp.Billing.Status)

	// Paid amount and status are persisted, not just returned.
	var stored billingdomain.Billing
	require.NoError(t, f.db.First(&stored, "id = ?", billingID).Error)
	assert.Equal(t, 72000.0, stored.PaidAmount)
	assert.Equal(t, billingdomain.BillingStatusPaid, stored.Status)
}

func TestRecord_OverpaymentAccepted(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := f.ctx()
	billingID := f.seedBilling(t, 72000, f.clk.Now().AddDate(0, 0, 14), billingdomain.BillingStatusPending)

	resp, err := f.svc.Record(ctx, paymentdomain.RecordPaymentRequest{
		BillingID: billingID.String(),
		Amount:    80000,
	})
	require.NoError(t, err)
	assert.Equal(t, 80000.0, resp.Billing.PaidAmount)
	assert.Equal(t, billingdomain.BillingStatusPaid, resp.Billing.Status)
}

func TestRecord_PartialPastDueIsOverdue(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := f.ctx()
	due := f.clk.Now().AddDate(0, 0, 7)
	billingID := f.seedBilling(t, 72000, due, billingdomain.BillingStatusPending)

	f.clk.Advance(10 * 24 * time.Hour)

	resp, err := f.svc.Record(ctx, paymentdomain.RecordPaymentRequest{
		BillingID: billingID.String(),
		Amount:    30000,
	})
	require.NoError(t, err)
	assert.Equal(t, billingdomain.BillingStatusOverdue, resp.Billing.Status)
}

func TestRecord_RejectsNonPositiveAmount(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := f.ctx()
	billingID := f.seedBilling(t, 72000, f.clk.Now(), billingdomain.BillingStatusPending)

	_, err := f.svc.Record(ctx, paymentdomain.RecordPaymentRequest{
		BillingID: billingID.String(),
		Amount:    0,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPaymentAmount)

	_, err = f.svc.Record(ctx, paymentdomain.RecordPaymentRequest{
		BillingID: billingID.String(),
		Amount:    -500,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPaymentAmount)

	var count int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRecord_RejectsCancelledBilling(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := f.ctx()
	billingID := f.seedBilling(t, 72000, f.clk.Now(), billingdomain.BillingStatusCancelled)

	_, err := f.svc.Record(ctx, paymentdomain.RecordPaymentRequest{
		BillingID: billingID.String(),
		Amount:    30000,
	})
	assert.ErrorIs(t, err, billingdomain.ErrBillingCancelled)
}

func TestRecord_UnknownBilling(t *testing.T) {
	f := setupPaymentFixture(t)

	_, err := f.svc.Record(f.ctx(), paymentdomain.RecordPaymentRequest{
		BillingID: f.node.Generate().String(),
		Amount:    1000,
	})
	assert.ErrorIs(t, err, billingdomain.ErrBillingNotFound)
}

func TestRecord_OtherCompanyBillingHidden(t *testing.T) {
	f := setupPaymentFixture(t)
	billingID := f.seedBilling(t, 72000, f.clk.Now(), billingdomain.BillingStatusPending)

	otherCtx := companyctx.WithCompanyID(context.Background(), int64(f.node.Generate()))
	_, err := f.svc.Record(otherCtx, paymentdomain.RecordPaymentRequest{
		BillingID: billingID.String(),
		Amount:    1000,
	})
	assert.ErrorIs(t, err, billingdomain.ErrBillingNotFound)
}

func TestListByBilling(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := f.ctx()
	billingID := f.seedBilling(t, 72000, f.clk.Now().AddDate(0, 0, 14), billingdomain.BillingStatusPending)

	_, err := f.svc.Record(ctx, paymentdomain.RecordPaymentRequest{
		BillingID: billingID.String(),
		Amount:    30000,
		Reference: "TRX-001",
	})
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, paymentdomain.RecordPaymentRequest{
		BillingID: billingID.String(),
		Amount:    42000,
		Reference: "TRX-002",
	})
	require.NoError(t, err)

	resp, err := f.svc.ListByBilling(ctx, billingID.String())
	require.NoError(t, err)
	require.Len(t, resp.Payments, 2)
	assert.Equal(t, 72000.0, resp.Payments[0].Amount+resp.Payments[1].Amount)
}
