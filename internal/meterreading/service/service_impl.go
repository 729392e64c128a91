package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/propline/propline/internal/billing/domain"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/companyctx"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	meterreadingdomain "github.com/propline/propline/internal/meterreading/domain"
	obsmetrics "github.com/propline/propline/internal/observability/metrics"
	propertydomain "github.com/propline/propline/internal/property/domain"
	"github.com/propline/propline/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.Metrics

	readingrepo repository.Repository[meterreadingdomain.MeterReading]
	unitrepo    repository.Repository[propertydomain.Unit]
	feetyperepo repository.Repository[feetypedomain.FeeType]
}

func NewService(p ServiceParam) meterreadingdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("meterreading.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,

		readingrepo: repository.ProvideStore[meterreadingdomain.MeterReading](p.DB),
		unitrepo:    repository.ProvideStore[propertydomain.Unit](p.DB),
		feetyperepo: repository.ProvideStore[feetypedomain.FeeType](p.DB),
	}
}

func (s *Service) List(ctx context.Context, req meterreadingdomain.ListMeterReadingRequest) (meterreadingdomain.ListMeterReadingResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return meterreadingdomain.ListMeterReadingResponse{}, err
	}

	filter := &meterreadingdomain.MeterReading{CompanyID: companyID}
	if raw := strings.TrimSpace(req.UnitID); raw != "" {
		unitID, err := snowflake.ParseString(raw)
		if err != nil {
			return meterreadingdomain.ListMeterReadingResponse{}, propertydomain.ErrUnitNotFound
		}
		filter.UnitID = unitID
	}
	if raw := strings.TrimSpace(req.FeeTypeID); raw != "" {
		feeTypeID, err := snowflake.ParseString(raw)
		if err != nil {
			return meterreadingdomain.ListMeterReadingResponse{}, feetypedomain.ErrFeeTypeNotFound
		}
		filter.FeeTypeID = feeTypeID
	}
	if raw := strings.TrimSpace(req.BillingMonth); raw != "" {
		if _, err := billingdomain.ParseBillingMonth(raw); err != nil {
			return meterreadingdomain.ListMeterReadingResponse{}, meterreadingdomain.ErrInvalidBillingMonth
		}
		filter.BillingMonth = raw
	}

	items, err := s.readingrepo.Find(ctx, filter)
	if err != nil {
		return meterreadingdomain.ListMeterReadingResponse{}, err
	}

	readings := make([]meterreadingdomain.MeterReading, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		readings = append(readings, *item)
	}
	return meterreadingdomain.ListMeterReadingResponse{Readings: readings}, nil
}

func (s *Service) Create(ctx context.Context, req meterreadingdomain.CreateMeterReadingRequest) (meterreadingdomain.MeterReading, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return meterreadingdomain.MeterReading{}, err
	}

	billingMonth := strings.TrimSpace(req.BillingMonth)
	if _, err := billingdomain.ParseBillingMonth(billingMonth); err != nil {
		return meterreadingdomain.MeterReading{}, meterreadingdomain.ErrInvalidBillingMonth
	}

	unitID, err := snowflake.ParseString(strings.TrimSpace(req.UnitID))
	if err != nil {
		return meterreadingdomain.MeterReading{}, propertydomain.ErrUnitNotFound
	}
	feeTypeID, err := snowflake.ParseString(strings.TrimSpace(req.FeeTypeID))
	if err != nil {
		return meterreadingdomain.MeterReading{}, feetypedomain.ErrFeeTypeNotFound
	}

	unit, err := s.unitrepo.FindOne(ctx, &propertydomain.Unit{ID: unitID, CompanyID: companyID})
	if err != nil {
		return meterreadingdomain.MeterReading{}, err
	}
	if unit == nil {
		return meterreadingdomain.MeterReading{}, propertydomain.ErrUnitNotFound
	}

	feeType, err := s.feetyperepo.FindOne(ctx, &feetypedomain.FeeType{ID: feeTypeID, CompanyID: companyID})
	if err != nil {
		return meterreadingdomain.MeterReading{}, err
	}
	if feeType == nil {
		return meterreadingdomain.MeterReading{}, feetypedomain.ErrFeeTypeNotFound
	}
	if feeType.CalculationType != feetypedomain.CalculationMetered {
		return meterreadingdomain.MeterReading{}, meterreadingdomain.ErrFeeTypeNotMetered
	}

	consumption, err := meterreadingdomain.Consumption(req.PreviousReading, req.CurrentReading)
	if err != nil {
		return meterreadingdomain.MeterReading{}, err
	}

	unitPrice := 0.0
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	} else if feeType.DefaultUnitPrice != nil {
		unitPrice = *feeType.DefaultUnitPrice
	}

	reading := meterreadingdomain.MeterReading{
		ID:              s.genID.Generate(),
		CompanyID:       companyID,
		UnitID:          unitID,
		FeeTypeID:       feeTypeID,
		BillingMonth:    billingMonth,
		PreviousReading: req.PreviousReading,
		CurrentReading:  req.CurrentReading,
		Consumption:     consumption,
		UnitPrice:       unitPrice,
		TotalAmount:     consumption * unitPrice,
		ReadingDate:     req.ReadingDate,
		CreatedAt:       s.clock.Now(),
	}

	// A reading for an already-recorded month is a correction; it is stored
	// as a new row and supersedes the earlier one at billing time.
	if err := s.readingrepo.Create(ctx, &reading); err != nil {
		return meterreadingdomain.MeterReading{}, err
	}

	s.metrics.RecordMeterReading(ctx, feeType.Code)
	s.log.Info("meter reading recorded",
		zap.String("unit_id", unitID.String()),
		zap.String("fee_code", feeType.Code),
		zap.String("billing_month", billingMonth),
		zap.Float64("consumption", consumption),
	)
	return reading, nil
}

func (s *Service) companyIDFromContext(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return 0, meterreadingdomain.ErrInvalidCompany
	}
	return companyID, nil
}
