package domain

import (
	"context"
	"errors"
	"time"
)

// GenerateBillingRequest asks for billings for every active lease in the
// month. PropertyIDs, UnitIDs and LeaseIDs each narrow the batch; multiple
// filters combine with AND. Issue and due dates are required inputs.
type GenerateBillingRequest struct {
	BillingMonth string     `json:"billing_month" binding:"required"`
	IssueDate    *time.Time `json:"issue_date"`
	DueDate      *time.Time `json:"due_date"`
	PropertyIDs  []string   `json:"property_ids"`
	UnitIDs      []string   `json:"unit_ids"`
	LeaseIDs     []string   `json:"lease_ids"`
}

// GenerateBillingResult reports one lease's outcome within a batch.
type GenerateBillingResult struct {
	UnitID   string `json:"unit_id"`
	UnitName string `json:"unit_name"`
	Number   string `json:"billing_number,omitempty"`
	Skipped  bool   `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// GenerateBillingResponse summarizes a generation batch.
type GenerateBillingResponse struct {
	BillingMonth string                  `json:"billing_month"`
	Generated    int                     `json:"generated"`
	Skipped      int                     `json:"skipped"`
	Failed       int                     `json:"failed"`
	Results      []GenerateBillingResult `json:"results"`
}

type ListBillingRequest struct {
	BillingMonth string `form:"billing_month"`
	Status       string `form:"status"`
	UnitID       string `form:"unit_id"`
}

type ListBillingResponse struct {
	Billings []Billing `json:"billings"`
}

// DocumentData is a billing joined with the display names its printable
// statement needs.
type DocumentData struct {
	Billing      Billing
	CompanyName  string
	PropertyName string
	UnitName     string
	TenantName   string
}

type Service interface {
	Generate(ctx context.Context, req GenerateBillingRequest) (GenerateBillingResponse, error)
	List(ctx context.Context, req ListBillingRequest) (ListBillingResponse, error)
	GetByID(ctx context.Context, id string) (Billing, error)
	Cancel(ctx context.Context, id string) (Billing, error)
	Document(ctx context.Context, id string) (DocumentData, error)
}

var (
	ErrInvalidCompany       = errors.New("invalid_company")
	ErrBillingNotFound      = errors.New("billing_not_found")
	ErrBillingCancelled     = errors.New("billing_cancelled")
	ErrNoActiveLeases       = errors.New("no active leases found")
	ErrAllUnitsBilled       = errors.New("all selected units already have billings for this month")
	ErrMissingIssueDate     = errors.New("issue_date is required")
	ErrMissingDueDate       = errors.New("due_date is required")
	ErrInvalidIssueDueOrder = errors.New("due date cannot be before issue date")
	ErrGenerationLocked     = errors.New("billing generation already in progress")
)
