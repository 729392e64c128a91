package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/propline/propline/internal/billing/calc"
	billingdomain "github.com/propline/propline/internal/billing/domain"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/companyctx"
	obsmetrics "github.com/propline/propline/internal/observability/metrics"
	paymentdomain "github.com/propline/propline/internal/payment/domain"
	"github.com/propline/propline/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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

	paymentrepo repository.Repository[paymentdomain.Payment]
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payment.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,

		paymentrepo: repository.ProvideStore[paymentdomain.Payment](p.DB),
	}
}

// Record appends a payment and recomputes the billing's paid amount and
// status inside one transaction. Overpayment is accepted; the outstanding
// balance floors at zero.
func (s *Service) Record(ctx context.Context, req paymentdomain.RecordPaymentRequest) (paymentdomain.RecordPaymentResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return paymentdomain.RecordPaymentResponse{}, err
	}

	if req.Amount <= 0 {
		return paymentdomain.RecordPaymentResponse{}, paymentdomain.ErrInvalidPaymentAmount
	}

	billingID, err := snowflake.ParseString(strings.TrimSpace(req.BillingID))
	if err != nil {
		return paymentdomain.RecordPaymentResponse{}, billingdomain.ErrBillingNotFound
	}

	now := s.clock.Now()
	paymentDate := now
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	var resp paymentdomain.RecordPaymentResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		billing, err := s.loadBillingForUpdate(ctx, tx, companyID, billingID)
		if err != nil {
			return err
		}
		if billing == nil {
			return billingdomain.ErrBillingNotFound
		}
		if billing.Status == billingdomain.BillingStatusCancelled {
			return billingdomain.ErrBillingCancelled
		}

		payment := paymentdomain.Payment{
			ID:            s.genID.Generate(),
			CompanyID:     companyID,
			BillingID:     billing.ID,
			Amount:        req.Amount,
			PaymentDate:   paymentDate,
			PaymentMethod: strings.TrimSpace(req.PaymentMethod),
			Reference:     strings.TrimSpace(req.Reference),
			Metadata:      normalizeMetadata(req.Metadata),
			CreatedAt:     now,
		}
		if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
			return err
		}

		paidAmount, err := s.sumPayments(ctx, tx, billing.ID)
		if err != nil {
			return err
		}

		status := calc.ResolveStatus(billing.TotalAmount, paidAmount, billing.DueDate, now)
		if err := tx.WithContext(ctx).Exec(
			`UPDATE billings
			 SET paid_amount = ?, status = ?, updated_at = ?
			 WHERE id = ?`,
			paidAmount,
			status,
			now,
			billing.ID,
		).Error; err != nil {
			return err
		}

		billing.PaidAmount = paidAmount
		billing.Status = status
		billing.UpdatedAt = now
		resp = paymentdomain.RecordPaymentResponse{
			Payment: payment,
			Billing: *billing,
		}
		return nil
	})
	if err != nil {
		return paymentdomain.RecordPaymentResponse{}, err
	}

	s.metrics.RecordPayment(ctx, resp.Payment.PaymentMethod)
	s.log.Info("payment recorded",
		zap.String("billing_id", resp.Billing.ID.String()),
		zap.String("billing_number", resp.Billing.BillingNumber),
		zap.Float64("amount", resp.Payment.Amount),
		zap.Float64("paid_amount", resp.Billing.PaidAmount),
		zap.String("status", string(resp.Billing.Status)),
	)
	return resp, nil
}

func (s *Service) ListByBilling(ctx context.Context, billingID string) (paymentdomain.ListPaymentResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return paymentdomain.ListPaymentResponse{}, err
	}

	id, err := snowflake.ParseString(strings.TrimSpace(billingID))
	if err != nil {
		return paymentdomain.ListPaymentResponse{}, billingdomain.ErrBillingNotFound
	}

	items, err := s.paymentrepo.Find(ctx, &paymentdomain.Payment{CompanyID: companyID, BillingID: id})
	if err != nil {
		return paymentdomain.ListPaymentResponse{}, err
	}

	payments := make([]paymentdomain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}
	return paymentdomain.ListPaymentResponse{Payments: payments}, nil
}

func (s *Service) loadBillingForUpdate(ctx context.Context, tx *gorm.DB, companyID, billingID snowflake.ID) (*billingdomain.Billing, error) {
	var billing billingdomain.Billing
	stmt := tx.WithContext(ctx)

	query := `SELECT id, company_id, lease_id, unit_id, tenant_id, billing_number,
	                 billing_month, issue_date, due_date, subtotal, tax_amount,
	                 total_amount, paid_amount, status, notes, created_at, updated_at
	          FROM billings
	          WHERE company_id = ? AND id = ?`
	if stmt.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	err := stmt.Raw(query, companyID, billingID).Scan(&billing).Error
	if err != nil {
		return nil, err
	}
	if billing.ID == 0 {
		return nil, nil
	}
	return &billing, nil
}

func (s *Service) sumPayments(ctx context.Context, tx *gorm.DB, billingID snowflake.ID) (float64, error) {
	var paid float64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM payments
		 WHERE billing_id = ?`,
		billingID,
	).Scan(&paid).Error
	if err != nil {
		return 0, err
	}
	return paid, nil
}

func (s *Service) companyIDFromContext(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return 0, paymentdomain.ErrInvalidCompany
	}
	return companyID, nil
}

func normalizeMetadata(input map[string]any) datatypes.JSONMap {
	if input == nil {
		return datatypes.JSONMap{}
	}
	output := datatypes.JSONMap{}
	for k, v := range input {
		output[k] = v
	}
	return output
}
