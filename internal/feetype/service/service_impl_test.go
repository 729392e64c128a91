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
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func f64(v float64) *float64 { return &v }

func setupFeeTypeService(t *testing.T) (feetypedomain.Service, context.Context) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&feetypedomain.FeeType{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)),
	})

	ctx := companyctx.WithCompanyID(context.Background(), int64(node.Generate()))
	return svc, ctx
}

func TestCreateFeeType_NormalizesCode(t *testing.T) {
	svc, ctx := setupFeeTypeService(t)

	feeType, err := svc.Create(ctx, feetypedomain.CreateFeeTypeRequest{
		Code:            "  Security  ",
		Name:            "Security Fee",
		CalculationType: feetypedomain.CalculationFixed,
		DefaultAmount:   f64(50000),
	})
	require.NoError(t, err)
	assert.Equal(t, "security", feeType.Code)
	assert.True(t, feeType.IsActive)
}

func TestCreateFeeType_DuplicateCode(t *testing.T) {
	svc, ctx := setupFeeTypeService(t)

	_, err := svc.Create(ctx, feetypedomain.CreateFeeTypeRequest{
		Code:            "security",
		Name:            "Security Fee",
		CalculationType: feetypedomain.CalculationFixed,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, feetypedomain.CreateFeeTypeRequest{
		Code:            "SECURITY",
		Name:            "Security Again",
		CalculationType: feetypedomain.CalculationFixed,
	})
	assert.ErrorIs(t, err, feetypedomain.ErrDuplicateFeeTypeCode)
}

func TestCreateFeeType_InvalidCalculationType(t *testing.T) {
	svc, ctx := setupFeeTypeService(t)

	_, err := svc.Create(ctx, feetypedomain.CreateFeeTypeRequest{
		Code:            "levy",
		Name:            "Levy",
		CalculationType: "percentage",
	})
	assert.ErrorIs(t, err, feetypedomain.ErrInvalidCalculationType)
}

func TestUpdateFeeType_PartialFields(t *testing.T) {
	svc, ctx := setupFeeTypeService(t)

	created, err := svc.Create(ctx, feetypedomain.CreateFeeTypeRequest{
		Code:            "maintenance",
		Name:            "Maintenance",
		CalculationType: feetypedomain.CalculationPerSqm,
		DefaultUnitPrice: f64(300),
	})
	require.NoError(t, err)

	name := "Building Maintenance"
	updated, err := svc.Update(ctx, created.ID.String(), feetypedomain.UpdateFeeTypeRequest{
		Name:             &name,
		DefaultUnitPrice: f64(350),
	})
	require.NoError(t, err)
	assert.Equal(t, "Building Maintenance", updated.Name)
	require.NotNil(t, updated.DefaultUnitPrice)
	assert.Equal(t, 350.0, *updated.DefaultUnitPrice)
	assert.Equal(t, "maintenance", updated.Code)
}

func TestDeactivateFeeType_HiddenFromDefaultList(t *testing.T) {
	svc, ctx := setupFeeTypeService(t)

	created, err := svc.Create(ctx, feetypedomain.CreateFeeTypeRequest{
		Code:            "security",
		Name:            "Security Fee",
		CalculationType: feetypedomain.CalculationFixed,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, created.ID.String()))

	resp, err := svc.List(ctx, feetypedomain.ListFeeTypeRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.FeeTypes)

	resp, err = svc.List(ctx, feetypedomain.ListFeeTypeRequest{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, resp.FeeTypes, 1)
	assert.False(t, resp.FeeTypes[0].IsActive)

	// Deactivated fee types stay resolvable for historical billing items.
	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestFeeTypes_ScopedToCompany(t *testing.T) {
	svc, ctx := setupFeeTypeService(t)

	_, err := svc.Create(ctx, feetypedomain.CreateFeeTypeRequest{
		Code:            "security",
		Name:            "Security Fee",
		CalculationType: feetypedomain.CalculationFixed,
	})
	require.NoError(t, err)

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	otherCtx := companyctx.WithCompanyID(context.Background(), int64(node.Generate()))

	resp, err := svc.List(otherCtx, feetypedomain.ListFeeTypeRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.FeeTypes)
}
