package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/propline/propline/internal/billing/calc"
	billingdomain "github.com/propline/propline/internal/billing/domain"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	leasedomain "github.com/propline/propline/internal/lease/domain"
	meterreadingdomain "github.com/propline/propline/internal/meterreading/domain"
	unitfeedomain "github.com/propline/propline/internal/unitfee/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const generationLockTTL = 2 * time.Minute

// Generate creates one billing per active lease for the month. Each lease is
// written in its own transaction; one failure never aborts the batch. The
// (unit_id, billing_month) unique index is the final idempotency guard.
func (s *Service) Generate(ctx context.Context, req billingdomain.GenerateBillingRequest) (billingdomain.GenerateBillingResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return billingdomain.GenerateBillingResponse{}, err
	}

	billingMonth := strings.TrimSpace(req.BillingMonth)
	if _, err := billingdomain.ParseBillingMonth(billingMonth); err != nil {
		return billingdomain.GenerateBillingResponse{}, err
	}

	if req.IssueDate == nil {
		return billingdomain.GenerateBillingResponse{}, billingdomain.ErrMissingIssueDate
	}
	if req.DueDate == nil {
		return billingdomain.GenerateBillingResponse{}, billingdomain.ErrMissingDueDate
	}
	issueDate := *req.IssueDate
	dueDate := *req.DueDate
	if dueDate.Before(issueDate) {
		return billingdomain.GenerateBillingResponse{}, billingdomain.ErrInvalidIssueDueOrder
	}

	cfg := s.billingCfg.Get()
	now := s.clock.Now()

	leaseFilter, err := parseLeaseFilter(req)
	if err != nil {
		return billingdomain.GenerateBillingResponse{}, err
	}

	if s.locker != nil {
		key := fmt.Sprintf("propline:billing:generate:%d:%s", companyID, billingMonth)
		token, ok, err := s.locker.TryLock(ctx, key, generationLockTTL)
		if err != nil {
			s.log.Warn("generation lock unavailable, relying on unique index", zap.Error(err))
		} else if !ok {
			return billingdomain.GenerateBillingResponse{}, billingdomain.ErrGenerationLocked
		} else {
			defer func() {
				if releaseErr := s.locker.Release(context.WithoutCancel(ctx), key, token); releaseErr != nil {
					s.log.Warn("generation lock release failed", zap.Error(releaseErr))
				}
			}()
		}
	}

	leases, err := s.leaseSvc.ListActiveLeases(ctx, leaseFilter)
	if err != nil {
		return billingdomain.GenerateBillingResponse{}, err
	}
	if len(leases) == 0 {
		return billingdomain.GenerateBillingResponse{}, billingdomain.ErrNoActiveLeases
	}

	billedUnits, err := s.billedUnitsForMonth(ctx, companyID, billingMonth)
	if err != nil {
		return billingdomain.GenerateBillingResponse{}, err
	}

	pending := 0
	for _, lease := range leases {
		if !billedUnits[lease.UnitID] {
			pending++
		}
	}
	if pending == 0 {
		return billingdomain.GenerateBillingResponse{}, billingdomain.ErrAllUnitsBilled
	}

	feeTypes, err := s.activeFeeTypes(ctx, companyID)
	if err != nil {
		return billingdomain.GenerateBillingResponse{}, err
	}
	overrides, err := s.overridesByUnit(ctx, companyID)
	if err != nil {
		return billingdomain.GenerateBillingResponse{}, err
	}
	readings, err := s.readingsForMonth(ctx, companyID, billingMonth)
	if err != nil {
		return billingdomain.GenerateBillingResponse{}, err
	}

	resp := billingdomain.GenerateBillingResponse{BillingMonth: billingMonth}
	for _, lease := range leases {
		result := billingdomain.GenerateBillingResult{
			UnitID:   lease.UnitID.String(),
			UnitName: lease.UnitName,
		}

		if billedUnits[lease.UnitID] {
			result.Skipped = true
			resp.Skipped++
			resp.Results = append(resp.Results, result)
			continue
		}

		number, err := s.generateForLease(ctx, generateInput{
			companyID:    companyID,
			lease:        lease,
			billingMonth: billingMonth,
			issueDate:    issueDate,
			dueDate:      dueDate,
			taxRate:      cfg.TaxRate,
			numberPrefix: cfg.NumberPrefix,
			seqDigits:    cfg.SequenceDigits,
			feeTypes:     feeTypes,
			overrides:    overrides[lease.UnitID],
			readings:     readings[lease.UnitID],
			now:          now,
		})
		switch {
		case err != nil:
			result.Error = err.Error()
			resp.Failed++
			s.metrics.RecordGenerationFailure(ctx, billingMonth, "lease_error")
			s.log.Error("billing generation failed for lease",
				zap.String("lease_id", lease.LeaseID.String()),
				zap.String("unit_id", lease.UnitID.String()),
				zap.String("billing_month", billingMonth),
				zap.Error(err),
			)
		case number == "":
			// Lost the insert race to a concurrent generation run.
			result.Skipped = true
			resp.Skipped++
		default:
			result.Number = number
			resp.Generated++
			s.metrics.RecordBillingGenerated(ctx, billingMonth)
		}
		resp.Results = append(resp.Results, result)
	}

	s.log.Info("billing generation finished",
		zap.String("billing_month", billingMonth),
		zap.Int("generated", resp.Generated),
		zap.Int("skipped", resp.Skipped),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

type generateInput struct {
	companyID    snowflake.ID
	lease        leasedomain.ActiveLease
	billingMonth string
	issueDate    time.Time
	dueDate      time.Time
	taxRate      float64
	numberPrefix string
	seqDigits    int
	feeTypes     []feetypedomain.FeeType
	overrides    map[snowflake.ID]*unitfeedomain.UnitFeeOverride
	readings     map[snowflake.ID]*meterreadingdomain.MeterReading
	now          time.Time
}

// generateForLease writes one lease's billing in its own transaction. It
// returns the billing number, or "" when another writer inserted first.
func (s *Service) generateForLease(ctx context.Context, in generateInput) (string, error) {
	items := s.buildItems(in)
	subtotal, _ := calc.Total(items, 0)
	taxAmount := subtotal * in.taxRate
	_, total := calc.Total(items, taxAmount)

	var number string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := s.nextSequence(ctx, tx, in.companyID, in.numberPrefix, in.billingMonth)
		if err != nil {
			return err
		}
		number = billingdomain.FormatBillingNumber(in.numberPrefix, in.billingMonth, seq, in.seqDigits)

		billing := billingdomain.Billing{
			ID:            s.genID.Generate(),
			CompanyID:     in.companyID,
			LeaseID:       in.lease.LeaseID,
			UnitID:        in.lease.UnitID,
			TenantID:      in.lease.TenantID,
			BillingNumber: number,
			BillingMonth:  in.billingMonth,
			IssueDate:     in.issueDate,
			DueDate:       in.dueDate,
			Subtotal:      subtotal,
			TaxAmount:     taxAmount,
			TotalAmount:   total,
			PaidAmount:    0,
			Status:        billingdomain.BillingStatusPending,
			CreatedAt:     in.now,
			UpdatedAt:     in.now,
		}

		inserted, err := s.insertBilling(ctx, tx, billing)
		if err != nil {
			return err
		}
		if !inserted {
			number = ""
			return nil
		}

		for i := range items {
			items[i].ID = s.genID.Generate()
			items[i].BillingID = billing.ID
			items[i].CreatedAt = in.now
			if err := s.insertBillingItem(ctx, tx, items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

// buildItems assembles the line items for one lease. The rent line is always
// present. Metered fees are included whenever a reading exists, zero or not;
// other fee types drop zero amounts.
func (s *Service) buildItems(in generateInput) []billingdomain.BillingItem {
	items := []billingdomain.BillingItem{{
		FeeName:   "Monthly Rent",
		Quantity:  1,
		UnitPrice: in.lease.MonthlyRent,
		Amount:    in.lease.MonthlyRent,
	}}

	for _, feeType := range in.feeTypes {
		feeType := feeType
		override := in.overrides[feeType.ID]
		reading := in.readings[feeType.ID]

		amount := calc.FeeAmount(feeType, in.lease.AreaSqm, override, reading)

		if feeType.CalculationType == feetypedomain.CalculationMetered {
			if reading == nil {
				continue
			}
			readingID := reading.ID
			items = append(items, billingdomain.BillingItem{
				FeeTypeID:      &feeType.ID,
				MeterReadingID: &readingID,
				FeeName:        feeType.Name,
				Quantity:       reading.Consumption,
				UnitPrice:      reading.UnitPrice,
				Amount:         amount,
			})
			continue
		}

		if amount == 0 {
			continue
		}
		items = append(items, billingdomain.BillingItem{
			FeeTypeID: &feeType.ID,
			FeeName:   feeType.Name,
			Quantity:  1,
			UnitPrice: amount,
			Amount:    amount,
		})
	}
	return items
}

func parseLeaseFilter(req billingdomain.GenerateBillingRequest) (leasedomain.ActiveLeaseFilter, error) {
	var filter leasedomain.ActiveLeaseFilter
	var err error

	if filter.UnitIDs, err = parseIDList(req.UnitIDs, "unit"); err != nil {
		return leasedomain.ActiveLeaseFilter{}, err
	}
	if filter.PropertyIDs, err = parseIDList(req.PropertyIDs, "property"); err != nil {
		return leasedomain.ActiveLeaseFilter{}, err
	}
	if filter.LeaseIDs, err = parseIDList(req.LeaseIDs, "lease"); err != nil {
		return leasedomain.ActiveLeaseFilter{}, err
	}
	return filter, nil
}

func parseIDList(raw []string, kind string) ([]snowflake.ID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]snowflake.ID, 0, len(raw))
	for _, value := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid %s id %q", kind, value)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
