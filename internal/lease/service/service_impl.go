package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/companyctx"
	leasedomain "github.com/propline/propline/internal/lease/domain"
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

	leaserepo  repository.Repository[leasedomain.Lease]
	tenantrepo repository.Repository[leasedomain.Tenant]
	unitrepo   repository.Repository[propertydomain.Unit]
}

func NewService(p ServiceParam) leasedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("lease.service"),
		genID: p.GenID,
		clock: p.Clock,

		leaserepo:  repository.ProvideStore[leasedomain.Lease](p.DB),
		tenantrepo: repository.ProvideStore[leasedomain.Tenant](p.DB),
		unitrepo:   repository.ProvideStore[propertydomain.Unit](p.DB),
	}
}

func (s *Service) List(ctx context.Context, req leasedomain.ListLeaseRequest) (leasedomain.ListLeaseResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return leasedomain.ListLeaseResponse{}, err
	}

	filter := &leasedomain.Lease{CompanyID: companyID}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = leasedomain.LeaseStatus(status)
	}

	items, err := s.leaserepo.Find(ctx, filter)
	if err != nil {
		return leasedomain.ListLeaseResponse{}, err
	}

	leases := make([]leasedomain.Lease, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		leases = append(leases, *item)
	}
	return leasedomain.ListLeaseResponse{Leases: leases}, nil
}

func (s *Service) CreateTenant(ctx context.Context, req leasedomain.CreateTenantRequest) (leasedomain.Tenant, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return leasedomain.Tenant{}, err
	}

	now := s.clock.Now()
	tenant := leasedomain.Tenant{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tenantrepo.Create(ctx, &tenant); err != nil {
		return leasedomain.Tenant{}, err
	}
	return tenant, nil
}

func (s *Service) CreateLease(ctx context.Context, req leasedomain.CreateLeaseRequest) (leasedomain.Lease, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return leasedomain.Lease{}, err
	}

	unitID, err := snowflake.ParseString(strings.TrimSpace(req.UnitID))
	if err != nil {
		return leasedomain.Lease{}, leasedomain.ErrLeaseNotFound
	}
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil {
		return leasedomain.Lease{}, leasedomain.ErrTenantNotFound
	}

	unit, err := s.unitrepo.FindOne(ctx, &propertydomain.Unit{ID: unitID, CompanyID: companyID})
	if err != nil {
		return leasedomain.Lease{}, err
	}
	if unit == nil {
		return leasedomain.Lease{}, propertydomain.ErrUnitNotFound
	}

	tenant, err := s.tenantrepo.FindOne(ctx, &leasedomain.Tenant{ID: tenantID, CompanyID: companyID})
	if err != nil {
		return leasedomain.Lease{}, err
	}
	if tenant == nil {
		return leasedomain.Lease{}, leasedomain.ErrTenantNotFound
	}

	existing, err := s.leaserepo.FindOne(ctx, &leasedomain.Lease{
		CompanyID: companyID,
		UnitID:    unitID,
		Status:    leasedomain.LeaseStatusActive,
	})
	if err != nil {
		return leasedomain.Lease{}, err
	}
	if existing != nil {
		return leasedomain.Lease{}, leasedomain.ErrUnitOccupied
	}

	now := s.clock.Now()
	lease := leasedomain.Lease{
		ID:          s.genID.Generate(),
		CompanyID:   companyID,
		UnitID:      unitID,
		TenantID:    tenantID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		MonthlyRent: req.MonthlyRent,
		Status:      leasedomain.LeaseStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.leaserepo.Create(ctx, &lease); err != nil {
		return leasedomain.Lease{}, err
	}

	s.log.Info("lease created",
		zap.String("lease_id", lease.ID.String()),
		zap.String("unit_id", lease.UnitID.String()),
		zap.String("tenant_id", lease.TenantID.String()),
	)
	return lease, nil
}

func (s *Service) EndLease(ctx context.Context, id string) (leasedomain.Lease, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return leasedomain.Lease{}, err
	}

	leaseID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return leasedomain.Lease{}, leasedomain.ErrLeaseNotFound
	}

	lease, err := s.leaserepo.FindOne(ctx, &leasedomain.Lease{ID: leaseID, CompanyID: companyID})
	if err != nil {
		return leasedomain.Lease{}, err
	}
	if lease == nil {
		return leasedomain.Lease{}, leasedomain.ErrLeaseNotFound
	}

	now := s.clock.Now()
	if err := s.leaserepo.Update(ctx, lease.ID.String(), map[string]any{
		"status":     leasedomain.LeaseStatusEnded,
		"end_date":   now,
		"updated_at": now,
	}); err != nil {
		return leasedomain.Lease{}, err
	}

	updated, err := s.leaserepo.FindOne(ctx, &leasedomain.Lease{ID: leaseID, CompanyID: companyID})
	if err != nil {
		return leasedomain.Lease{}, err
	}
	return *updated, nil
}

func (s *Service) ListActiveLeases(ctx context.Context, filter leasedomain.ActiveLeaseFilter) ([]leasedomain.ActiveLease, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT l.id AS lease_id, l.unit_id, u.name AS unit_name, u.area_sqm,
	                 l.tenant_id, t.name AS tenant_name, l.monthly_rent
	          FROM leases l
	          JOIN units u ON u.id = l.unit_id
	          JOIN tenants t ON t.id = l.tenant_id
	          WHERE l.company_id = ? AND l.status = ?`
	args := []any{companyID, leasedomain.LeaseStatusActive}
	if len(filter.UnitIDs) > 0 {
		query += " AND l.unit_id IN ?"
		args = append(args, filter.UnitIDs)
	}
	if len(filter.PropertyIDs) > 0 {
		query += " AND u.property_id IN ?"
		args = append(args, filter.PropertyIDs)
	}
	if len(filter.LeaseIDs) > 0 {
		query += " AND l.id IN ?"
		args = append(args, filter.LeaseIDs)
	}
	query += " ORDER BY u.name ASC"

	var leases []leasedomain.ActiveLease
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

func (s *Service) companyIDFromContext(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return 0, leasedomain.ErrInvalidCompany
	}
	return companyID, nil
}
