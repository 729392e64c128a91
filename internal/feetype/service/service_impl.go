package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/companyctx"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	"github.com/propline/propline/pkg/db"
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

	feetyperepo repository.Repository[feetypedomain.FeeType]
}

func NewService(p ServiceParam) feetypedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("feetype.service"),
		genID: p.GenID,
		clock: p.Clock,

		feetyperepo: repository.ProvideStore[feetypedomain.FeeType](p.DB),
	}
}

func (s *Service) List(ctx context.Context, req feetypedomain.ListFeeTypeRequest) (feetypedomain.ListFeeTypeResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return feetypedomain.ListFeeTypeResponse{}, err
	}

	stmt := s.db.WithContext(ctx).Where("company_id = ?", companyID)
	if !req.IncludeInactive {
		stmt = stmt.Where("is_active = ?", true)
	}

	var feeTypes []feetypedomain.FeeType
	if err := stmt.Order("display_order asc, code asc").Find(&feeTypes).Error; err != nil {
		return feetypedomain.ListFeeTypeResponse{}, err
	}

	return feetypedomain.ListFeeTypeResponse{FeeTypes: feeTypes}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (feetypedomain.FeeType, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return feetypedomain.FeeType{}, err
	}

	feeTypeID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return feetypedomain.FeeType{}, feetypedomain.ErrFeeTypeNotFound
	}

	feeType, err := s.feetyperepo.FindOne(ctx, &feetypedomain.FeeType{ID: feeTypeID, CompanyID: companyID})
	if err != nil {
		return feetypedomain.FeeType{}, err
	}
	if feeType == nil {
		return feetypedomain.FeeType{}, feetypedomain.ErrFeeTypeNotFound
	}
	return *feeType, nil
}

func (s *Service) Create(ctx context.Context, req feetypedomain.CreateFeeTypeRequest) (feetypedomain.FeeType, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return feetypedomain.FeeType{}, err
	}

	if !validCalculationType(req.CalculationType) {
		return feetypedomain.FeeType{}, feetypedomain.ErrInvalidCalculationType
	}

	now := s.clock.Now()
	feeType := feetypedomain.FeeType{
		ID:               s.genID.Generate(),
		CompanyID:        companyID,
		Code:             strings.ToLower(strings.TrimSpace(req.Code)),
		Name:             strings.TrimSpace(req.Name),
		CalculationType:  req.CalculationType,
		DefaultAmount:    req.DefaultAmount,
		DefaultUnitPrice: req.DefaultUnitPrice,
		UnitLabel:        strings.TrimSpace(req.UnitLabel),
		DisplayOrder:     req.DisplayOrder,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.feetyperepo.Create(ctx, &feeType); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return feetypedomain.FeeType{}, feetypedomain.ErrDuplicateFeeTypeCode
		}
		return feetypedomain.FeeType{}, err
	}

	s.log.Info("fee type created",
		zap.String("fee_type_id", feeType.ID.String()),
		zap.String("code", feeType.Code),
		zap.String("calculation_type", string(feeType.CalculationType)),
	)
	return feeType, nil
}

func (s *Service) Update(ctx context.Context, id string, req feetypedomain.UpdateFeeTypeRequest) (feetypedomain.FeeType, error) {
	feeType, err := s.GetByID(ctx, id)
	if err != nil {
		return feetypedomain.FeeType{}, err
	}

	updates := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.DefaultAmount != nil {
		updates["default_amount"] = *req.DefaultAmount
	}
	if req.DefaultUnitPrice != nil {
		updates["default_unit_price"] = *req.DefaultUnitPrice
	}
	if req.UnitLabel != nil {
		updates["unit_label"] = strings.TrimSpace(*req.UnitLabel)
	}
	if req.DisplayOrder != nil {
		updates["display_order"] = *req.DisplayOrder
	}

	if err := s.feetyperepo.Update(ctx, feeType.ID.String(), updates); err != nil {
		return feetypedomain.FeeType{}, err
	}
	return s.GetByID(ctx, id)
}

// Deactivate soft-deletes the fee type so historical billing items keep their reference.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	feeType, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.feetyperepo.Update(ctx, feeType.ID.String(), map[string]any{
		"is_active":  false,
		"updated_at": s.clock.Now(),
	})
}

func (s *Service) companyIDFromContext(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return 0, feetypedomain.ErrInvalidCompany
	}
	return companyID, nil
}

func validCalculationType(ct feetypedomain.CalculationType) bool {
	switch ct {
	case feetypedomain.CalculationFixed,
		feetypedomain.CalculationPerSqm,
		feetypedomain.CalculationMetered,
		feetypedomain.CalculationCustom:
		return true
	default:
		return false
	}
}
