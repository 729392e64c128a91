package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/propline/propline/internal/billing/calc"
	billingdomain "github.com/propline/propline/internal/billing/domain"
	"github.com/propline/propline/internal/providers/pdf"
)

func (s *Server) GenerateBillings(c *gin.Context) {
	var req billingdomain.GenerateBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("billing_month", "invalid_request", "billing_month is required"))
		return
	}

	// API convenience: omitted dates default to today and the configured due
	// window. The billing service itself requires both dates.
	if req.IssueDate == nil {
		issue := s.clock.Now().Truncate(24 * time.Hour)
		req.IssueDate = &issue
	}
	if req.DueDate == nil {
		due := req.IssueDate.AddDate(0, 0, s.billingCfg.Get().DefaultDueDays)
		req.DueDate = &due
	}

	resp, err := s.billingSvc.Generate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBillings(c *gin.Context) {
	var req billingdomain.ListBillingRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	resp, err := s.billingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Billings})
}

func (s *Server) GetBillingByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	billing, err := s.billingSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": billing})
}

func (s *Server) CancelBilling(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	billing, err := s.billingSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": billing})
}

// GetBillingDocument streams the billing statement as a PDF.
func (s *Server) GetBillingDocument(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	doc, err := s.billingSvc.Document(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfProvider.GenerateBillingDocument(c.Request.Context(), buildBillingDocument(doc))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Billing.BillingNumber+".pdf"))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}

func buildBillingDocument(doc billingdomain.DocumentData) pdf.BillingDocumentData {
	billing := doc.Billing
	items := make([]pdf.BillingDocumentItem, 0, len(billing.Items))
	for _, item := range billing.Items {
		items = append(items, pdf.BillingDocumentItem{
			FeeName:   item.FeeName,
			Quantity:  formatQuantity(item.Quantity),
			UnitPrice: formatAmount(item.UnitPrice),
			Amount:    formatAmount(item.Amount),
		})
	}

	return pdf.BillingDocumentData{
		CompanyName:   doc.CompanyName,
		PropertyName:  doc.PropertyName,
		UnitName:      doc.UnitName,
		TenantName:    doc.TenantName,
		BillingNumber: billing.BillingNumber,
		BillingMonth:  billing.BillingMonth,
		IssueDate:     billing.IssueDate.Format("2006-01-02"),
		DueDate:       billing.DueDate.Format("2006-01-02"),
		Status:        string(billing.Status),
		Items:         items,
		Subtotal:      formatAmount(billing.Subtotal),
		TaxAmount:     formatAmount(billing.TaxAmount),
		Total:         formatAmount(billing.TotalAmount),
		PaidAmount:    formatAmount(billing.PaidAmount),
		Outstanding:   formatAmount(calc.Outstanding(billing.TotalAmount, billing.PaidAmount)),
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
