package domain

import (
	"context"
	"errors"
	"time"

	billingdomain "github.com/propline/propline/internal/billing/domain"
)

type RecordPaymentRequest struct {
	BillingID     string         `json:"billing_id" binding:"required"`
	Amount        float64        `json:"amount" binding:"required"`
	PaymentDate   *time.Time     `json:"payment_date"`
	PaymentMethod string         `json:"payment_method"`
	Reference     string         `json:"reference"`
	Metadata      map[string]any `json:"metadata"`
}

// RecordPaymentResponse returns the ledger row plus the billing with its
// recomputed paid amount and status.
type RecordPaymentResponse struct {
	Payment Payment               `json:"payment"`
	Billing billingdomain.Billing `json:"billing"`
}

type ListPaymentResponse struct {
	Payments []Payment `json:"payments"`
}

type Service interface {
	Record(ctx context.Context, req RecordPaymentRequest) (RecordPaymentResponse, error)
	ListByBilling(ctx context.Context, billingID string) (ListPaymentResponse, error)
}

var (
	ErrInvalidCompany       = errors.New("invalid_company")
	ErrInvalidPaymentAmount = errors.New("payment amount must be greater than zero")
)
