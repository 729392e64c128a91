package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/companyctx"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	propertydomain "github.com/propline/propline/internal/property/domain"
	unitfeedomain "github.com/propline/propline/internal/unitfee/domain"
	"github.com/propline/propline/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	overriderepo repository.Repository[unitfeedomain.UnitFeeOverride]
	unitrepo     repository.Repository[propertydomain.Unit]
	feetyperepo  repository.Repository[feetypedomain.FeeType]
}

func NewService(p ServiceParam) unitfeedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("unitfee.service"),
		genID: p.GenID,
		clock: p.Clock,

		overriderepo: repository.ProvideStore[unitfeedomain.UnitFeeOverride](p.DB),
		unitrepo:     repository.ProvideStore[propertydomain.Unit](p.DB),
		feetyperepo:  repository.ProvideStore[feetypedomain.FeeType](p.DB),
	}
}

func (s *Service) List(ctx context.Context, req unitfeedomain.ListUnitFeeRequest) (unitfeedomain.ListUnitFeeResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return unitfeedomain.ListUnitFeeResponse{}, err
	}

	unitID, err := snowflake.ParseString(strings.TrimSpace(req.UnitID))
	if err != nil {
		return unitfeedomain.ListUnitFeeResponse{}, propertydomain.ErrUnitNotFound
	}

	items, err := s.overriderepo.Find(ctx, &unitfeedomain.UnitFeeOverride{
		CompanyID: companyID,
		UnitID:    unitID,
	})
	if err != nil {
		return unitfeedomain.ListUnitFeeResponse{}, err
	}

	overrides := make([]unitfeedomain.UnitFeeOverride, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		overrides = append(overrides, *item)
	}
	return unitfeedomain.ListUnitFeeResponse{Overrides: overrides}, nil
}

func (s *Service) Upsert(ctx context.Context, req unitfeedomain.UpsertUnitFeeRequest) (unitfeedomain.UnitFeeOverride, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return unitfeedomain.UnitFeeOverride{}, err
	}

	unitID, err := snowflake.ParseString(strings.TrimSpace(req.UnitID))
	if err != nil {
		return unitfeedomain.UnitFeeOverride{}, propertydomain.ErrUnitNotFound
	}
	feeTypeID, err := snowflake.ParseString(strings.TrimSpace(req.FeeTypeID))
	if err != nil {
		return unitfeedomain.UnitFeeOverride{}, feetypedomain.ErrFeeTypeNotFound
	}

	unit, err := s.unitrepo.FindOne(ctx, &propertydomain.Unit{ID: unitID, CompanyID: companyID})
	if err != nil {
		return unitfeedomain.UnitFeeOverride{}, err
	}
	if unit == nil {
		return unitfeedomain.UnitFeeOverride{}, propertydomain.ErrUnitNotFound
	}

	feeType, err := s.feetyperepo.FindOne(ctx, &feetypedomain.FeeType{ID: feeTypeID, CompanyID: companyID})
	if err != nil {
		return unitfeedomain.UnitFeeOverride{}, err
	}
	if feeType == nil {
		return unitfeedomain.UnitFeeOverride{}, feetypedomain.ErrFeeTypeNotFound
	}

	now := s.clock.Now()
	existing, err := s.overriderepo.FindOne(ctx, &unitfeedomain.UnitFeeOverride{
		CompanyID: companyID,
		UnitID:    unitID,
		FeeTypeID: feeTypeID,
	})
	if err != nil {
		return unitfeedomain.UnitFeeOverride{}, err
	}

	if existing != nil {
		if err := s.overriderepo.Update(ctx, existing.ID.String(), map[string]any{
			"custom_amount":     req.CustomAmount,
			"custom_unit_price": req.CustomUnitPrice,
			"updated_at":        now,
		}); err != nil {
			return unitfeedomain.UnitFeeOverride{}, err
		}
		existing.CustomAmount = req.CustomAmount
		existing.CustomUnitPrice = req.CustomUnitPrice
		existing.UpdatedAt = now
		return *existing, nil
	}

	override := unitfeedomain.UnitFeeOverride{
		ID:              s.genID.Generate(),
		CompanyID:       companyID,
		UnitID:          unitID,
		FeeTypeID:       feeTypeID,
		CustomAmount:    req.CustomAmount,
		CustomUnitPrice: req.CustomUnitPrice,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.overriderepo.Create(ctx, &override); err != nil {
		return unitfeedomain.UnitFeeOverride{}, err
	}
	return override, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return err
	}

	overrideID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return unitfeedomain.ErrOverrideNotFound
	}

	override, err := s.overriderepo.FindOne(ctx, &unitfeedomain.UnitFeeOverride{ID: overrideID, CompanyID: companyID})
	if err != nil {
		return err
	}
	if override == nil {
		return unitfeedomain.ErrOverrideNotFound
	}

	return s.overriderepo.Delete(ctx, override.ID.String())
}

func (s *Service) companyIDFromContext(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return 0, unitfeedomain.ErrInvalidCompany
	}
	return companyID, nil
}
