package pdf

import (
	"context"
	"io"
)

// Provider renders billing documents for download.
type Provider interface {
	GenerateBillingDocument(ctx context.Context, data BillingDocumentData) (io.Reader, error)
}

// BillingDocumentData is the display-ready content of one billing. Amounts
// arrive pre-formatted; rounding happens at the formatting step only.
type BillingDocumentData struct {
	CompanyName   string
	PropertyName  string
	UnitName      string
	TenantName    string
	BillingNumber string
	BillingMonth  string
	IssueDate     string
	DueDate       string
	Status        string

	Items []BillingDocumentItem

	Subtotal    string
	TaxAmount   string
	Total       string
	PaidAmount  string
	Outstanding string
}

// BillingDocumentItem is one rendered line.
type BillingDocumentItem struct {
	FeeName   string
	Quantity  string
	UnitPrice string
	Amount    string
}
