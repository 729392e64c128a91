package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/companyctx"
	propertydomain "github.com/propline/propline/internal/property/domain"
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

	propertyrepo repository.Repository[propertydomain.Property]
	unitrepo     repository.Repository[propertydomain.Unit]
}

func NewService(p ServiceParam) propertydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("property.service"),
		genID: p.GenID,
		clock: p.Clock,

		propertyrepo: repository.ProvideStore[propertydomain.Property](p.DB),
		unitrepo:     repository.ProvideStore[propertydomain.Unit](p.DB),
	}
}

func (s *Service) ListProperties(ctx context.Context) (propertydomain.ListPropertyResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return propertydomain.ListPropertyResponse{}, err
	}

	items, err := s.propertyrepo.Find(ctx, &propertydomain.Property{CompanyID: companyID})
	if err != nil {
		return propertydomain.ListPropertyResponse{}, err
	}

	properties := make([]propertydomain.Property, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		properties = append(properties, *item)
	}
	return propertydomain.ListPropertyResponse{Properties: properties}, nil
}

func (s *Service) CreateProperty(ctx context.Context, req propertydomain.CreatePropertyRequest) (propertydomain.Property, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return propertydomain.Property{}, err
	}

	now := s.clock.Now()
	property := propertydomain.Property{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		Name:      strings.TrimSpace(req.Name),
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.propertyrepo.Create(ctx, &property); err != nil {
		return propertydomain.Property{}, err
	}
	return property, nil
}

func (s *Service) ListUnits(ctx context.Context, req propertydomain.ListUnitRequest) (propertydomain.ListUnitResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return propertydomain.ListUnitResponse{}, err
	}

	filter := &propertydomain.Unit{CompanyID: companyID}
	if raw := strings.TrimSpace(req.PropertyID); raw != "" {
		propertyID, err := snowflake.ParseString(raw)
		if err != nil {
			return propertydomain.ListUnitResponse{}, propertydomain.ErrPropertyNotFound
		}
		filter.PropertyID = propertyID
	}

	items, err := s.unitrepo.Find(ctx, filter)
	if err != nil {
		return propertydomain.ListUnitResponse{}, err
	}

	units := make([]propertydomain.Unit, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		units = append(units, *item)
	}
	return propertydomain.ListUnitResponse{Units: units}, nil
}

func (s *Service) CreateUnit(ctx context.Context, req propertydomain.CreateUnitRequest) (propertydomain.Unit, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return propertydomain.Unit{}, err
	}

	propertyID, err := snowflake.ParseString(strings.TrimSpace(req.PropertyID))
	if err != nil {
		return propertydomain.Unit{}, propertydomain.ErrPropertyNotFound
	}

	property, err := s.propertyrepo.FindOne(ctx, &propertydomain.Property{ID: propertyID, CompanyID: companyID})
	if err != nil {
		return propertydomain.Unit{}, err
	}
	if property == nil {
		return propertydomain.Unit{}, propertydomain.ErrPropertyNotFound
	}

	now := s.clock.Now()
	unit := propertydomain.Unit{
		ID:         s.genID.Generate(),
		CompanyID:  companyID,
		PropertyID: propertyID,
		Name:       strings.TrimSpace(req.Name),
		AreaSqm:    req.AreaSqm,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.unitrepo.Create(ctx, &unit); err != nil {
		return propertydomain.Unit{}, err
	}
	return unit, nil
}

func (s *Service) GetUnit(ctx context.Context, id string) (propertydomain.Unit, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return propertydomain.Unit{}, err
	}

	unitID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return propertydomain.Unit{}, propertydomain.ErrUnitNotFound
	}

	unit, err := s.unitrepo.FindOne(ctx, &propertydomain.Unit{ID: unitID, CompanyID: companyID})
	if err != nil {
		return propertydomain.Unit{}, err
	}
	if unit == nil {
		return propertydomain.Unit{}, propertydomain.ErrUnitNotFound
	}
	return *unit, nil
}

func (s *Service) companyIDFromContext(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return 0, propertydomain.ErrInvalidCompany
	}
	return companyID, nil
}
