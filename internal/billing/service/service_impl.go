package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/propline/propline/internal/billing/calc"
	billingdomain "github.com/propline/propline/internal/billing/domain"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/companyctx"
	"github.com/propline/propline/internal/config"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	leasedomain "github.com/propline/propline/internal/lease/domain"
	"github.com/propline/propline/internal/lock"
	obsmetrics "github.com/propline/propline/internal/observability/metrics"
	unitfeedomain "github.com/propline/propline/internal/unitfee/domain"
	"github.com/propline/propline/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	BillingCfg *config.BillingConfigHolder
	LeaseSvc   leasedomain.Service
	Locker     *lock.Locker        `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	billingCfg *config.BillingConfigHolder
	leaseSvc   leasedomain.Service
	locker     *lock.Locker
	metrics    *obsmetrics.Metrics

	billingrepo  repository.Repository[billingdomain.Billing]
	itemrepo     repository.Repository[billingdomain.BillingItem]
	feetyperepo  repository.Repository[feetypedomain.FeeType]
	overriderepo repository.Repository[unitfeedomain.UnitFeeOverride]
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("billing.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		billingCfg: p.BillingCfg,
		leaseSvc:   p.LeaseSvc,
		locker:     p.Locker,
		metrics:    p.Metrics,

		billingrepo:  repository.ProvideStore[billingdomain.Billing](p.DB),
		itemrepo:     repository.ProvideStore[billingdomain.BillingItem](p.DB),
		feetyperepo:  repository.ProvideStore[feetypedomain.FeeType](p.DB),
		overriderepo: repository.ProvideStore[unitfeedomain.UnitFeeOverride](p.DB),
	}
}

func (s *Service) List(ctx context.Context, req billingdomain.ListBillingRequest) (billingdomain.ListBillingResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return billingdomain.ListBillingResponse{}, err
	}

	filter := &billingdomain.Billing{CompanyID: companyID}
	if month := strings.TrimSpace(req.BillingMonth); month != "" {
		if _, err := billingdomain.ParseBillingMonth(month); err != nil {
			return billingdomain.ListBillingResponse{}, err
		}
		filter.BillingMonth = month
	}
	if raw := strings.TrimSpace(req.UnitID); raw != "" {
		unitID, err := snowflake.ParseString(raw)
		if err != nil {
			return billingdomain.ListBillingResponse{}, billingdomain.ErrBillingNotFound
		}
		filter.UnitID = unitID
	}

	items, err := s.billingrepo.Find(ctx, filter)
	if err != nil {
		return billingdomain.ListBillingResponse{}, err
	}

	// Status is resolved against the clock at read time, so the status filter
	// has to be applied after the stored rows are refreshed.
	now := s.clock.Now()
	statusFilter := billingdomain.BillingStatus(strings.TrimSpace(req.Status))

	billings := make([]billingdomain.Billing, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		billing := *item
		billing.Status = s.currentStatus(billing, now)
		if statusFilter != "" && billing.Status != statusFilter {
			continue
		}
		billings = append(billings, billing)
	}
	return billingdomain.ListBillingResponse{Billings: billings}, nil
}

// currentStatus re-derives overdue and partial against now. Cancelled is
// terminal and never recomputed.
func (s *Service) currentStatus(billing billingdomain.Billing, now time.Time) billingdomain.BillingStatus {
	if billing.Status == billingdomain.BillingStatusCancelled {
		return billingdomain.BillingStatusCancelled
	}
	return calc.ResolveStatus(billing.TotalAmount, billing.PaidAmount, billing.DueDate, now)
}

func (s *Service) GetByID(ctx context.Context, id string) (billingdomain.Billing, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return billingdomain.Billing{}, err
	}

	billingID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return billingdomain.Billing{}, billingdomain.ErrBillingNotFound
	}

	billing, err := s.billingrepo.FindOne(ctx, &billingdomain.Billing{ID: billingID, CompanyID: companyID})
	if err != nil {
		return billingdomain.Billing{}, err
	}
	if billing == nil {
		return billingdomain.Billing{}, billingdomain.ErrBillingNotFound
	}

	lines, err := s.itemrepo.Find(ctx, &billingdomain.BillingItem{BillingID: billing.ID})
	if err != nil {
		return billingdomain.Billing{}, err
	}
	billing.Items = make([]billingdomain.BillingItem, 0, len(lines))
	for _, line := range lines {
		if line == nil {
			continue
		}
		billing.Items = append(billing.Items, *line)
	}
	billing.Status = s.currentStatus(*billing, s.clock.Now())
	return *billing, nil
}

// Cancel marks a billing cancelled. Cancellation is terminal; payments are
// rejected afterwards and the status is never recomputed.
func (s *Service) Cancel(ctx context.Context, id string) (billingdomain.Billing, error) {
	billing, err := s.GetByID(ctx, id)
	if err != nil {
		return billingdomain.Billing{}, err
	}
	if billing.Status == billingdomain.BillingStatusCancelled {
		return billing, nil
	}

	now := s.clock.Now()
	if err := s.billingrepo.Update(ctx, billing.ID.String(), map[string]any{
		"status":     billingdomain.BillingStatusCancelled,
		"updated_at": now,
	}); err != nil {
		return billingdomain.Billing{}, err
	}

	s.log.Info("billing cancelled",
		zap.String("billing_id", billing.ID.String()),
		zap.String("billing_number", billing.BillingNumber),
	)
	billing.Status = billingdomain.BillingStatusCancelled
	billing.UpdatedAt = now
	return billing, nil
}

// Document loads a billing with its items plus the company, property, unit
// and tenant names for rendering.
func (s *Service) Document(ctx context.Context, id string) (billingdomain.DocumentData, error) {
	billing, err := s.GetByID(ctx, id)
	if err != nil {
		return billingdomain.DocumentData{}, err
	}

	var names struct {
		CompanyName  string
		PropertyName string
		UnitName     string
		TenantName   string
	}
	err = s.db.WithContext(ctx).Raw(`
		SELECT c.name AS company_name,
		       p.name AS property_name,
		       u.name AS unit_name,
		       t.name AS tenant_name
		FROM billings b
		JOIN units u ON u.id = b.unit_id
		JOIN properties p ON p.id = u.property_id
		JOIN tenants t ON t.id = b.tenant_id
		JOIN companies c ON c.id = b.company_id
		WHERE b.id = ?
	`, billing.ID).Scan(&names).Error
	if err != nil {
		return billingdomain.DocumentData{}, err
	}

	return billingdomain.DocumentData{
		Billing:      billing,
		CompanyName:  names.CompanyName,
		PropertyName: names.PropertyName,
		UnitName:     names.UnitName,
		TenantName:   names.TenantName,
	}, nil
}

func (s *Service) companyIDFromContext(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return 0, billingdomain.ErrInvalidCompany
	}
	return companyID, nil
}
