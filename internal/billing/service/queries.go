package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/propline/propline/internal/billing/domain"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	meterreadingdomain "github.com/propline/propline/internal/meterreading/domain"
	unitfeedomain "github.com/propline/propline/internal/unitfee/domain"
	"gorm.io/gorm"
)

func (s *Service) billedUnitsForMonth(ctx context.Context, companyID snowflake.ID, billingMonth string) (map[snowflake.ID]bool, error) {
	var unitIDs []snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		`SELECT unit_id
		 FROM billings
		 WHERE company_id = ? AND billing_month = ?`,
		companyID,
		billingMonth,
	).Scan(&unitIDs).Error
	if err != nil {
		return nil, err
	}

	billed := make(map[snowflake.ID]bool, len(unitIDs))
	for _, id := range unitIDs {
		billed[id] = true
	}
	return billed, nil
}

func (s *Service) activeFeeTypes(ctx context.Context, companyID snowflake.ID) ([]feetypedomain.FeeType, error) {
	var feeTypes []feetypedomain.FeeType
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("display_order asc, code asc").
		Find(&feeTypes).Error
	if err != nil {
		return nil, err
	}
	return feeTypes, nil
}

func (s *Service) overridesByUnit(ctx context.Context, companyID snowflake.ID) (map[snowflake.ID]map[snowflake.ID]*unitfeedomain.UnitFeeOverride, error) {
	rows, err := s.overriderepo.Find(ctx, &unitfeedomain.UnitFeeOverride{CompanyID: companyID})
	if err != nil {
		return nil, err
	}

	byUnit := make(map[snowflake.ID]map[snowflake.ID]*unitfeedomain.UnitFeeOverride)
	for _, row := range rows {
		if row == nil {
			continue
		}
		if byUnit[row.UnitID] == nil {
			byUnit[row.UnitID] = make(map[snowflake.ID]*unitfeedomain.UnitFeeOverride)
		}
		byUnit[row.UnitID][row.FeeTypeID] = row
	}
	return byUnit, nil
}

// readingsForMonth indexes the month's readings by unit and fee type. Rows
// are scanned in insertion order so a correction recorded later supersedes
// the earlier reading for the same unit and fee type.
func (s *Service) readingsForMonth(ctx context.Context, companyID snowflake.ID, billingMonth string) (map[snowflake.ID]map[snowflake.ID]*meterreadingdomain.MeterReading, error) {
	var rows []meterreadingdomain.MeterReading
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND billing_month = ?", companyID, billingMonth).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byUnit := make(map[snowflake.ID]map[snowflake.ID]*meterreadingdomain.MeterReading)
	for i := range rows {
		row := &rows[i]
		if byUnit[row.UnitID] == nil {
			byUnit[row.UnitID] = make(map[snowflake.ID]*meterreadingdomain.MeterReading)
		}
		byUnit[row.UnitID][row.FeeTypeID] = row
	}
	return byUnit, nil
}

// nextSequence continues the per-month sequence from the count of billings
// already carrying the month's number prefix.
func (s *Service) nextSequence(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, prefix, billingMonth string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM billings
		 WHERE company_id = ? AND billing_number LIKE ?`,
		companyID,
		billingdomain.NumberPrefix(prefix, billingMonth)+"%",
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

func (s *Service) insertBilling(ctx context.Context, tx *gorm.DB, billing billingdomain.Billing) (bool, error) {
	result := tx.WithContext(ctx).Exec(
		`INSERT INTO billings (
			id, company_id, lease_id, unit_id, tenant_id, billing_number,
			billing_month, issue_date, due_date, subtotal, tax_amount,
			total_amount, paid_amount, status, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (unit_id, billing_month) DO NOTHING`,
		billing.ID,
		billing.CompanyID,
		billing.LeaseID,
		billing.UnitID,
		billing.TenantID,
		billing.BillingNumber,
		billing.BillingMonth,
		billing.IssueDate,
		billing.DueDate,
		billing.Subtotal,
		billing.TaxAmount,
		billing.TotalAmount,
		billing.PaidAmount,
		billing.Status,
		billing.Notes,
		billing.CreatedAt,
		billing.UpdatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

func (s *Service) insertBillingItem(ctx context.Context, tx *gorm.DB, item billingdomain.BillingItem) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO billing_items (
			id, billing_id, fee_type_id, meter_reading_id,
			fee_name, quantity, unit_price, amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.BillingID,
		item.FeeTypeID,
		item.MeterReadingID,
		item.FeeName,
		item.Quantity,
		item.UnitPrice,
		item.Amount,
		item.CreatedAt,
	).Error
}
