package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/propline/propline/internal/billing/domain"
	feetypedomain "github.com/propline/propline/internal/feetype/domain"
	leasedomain "github.com/propline/propline/internal/lease/domain"
	meterreadingdomain "github.com/propline/propline/internal/meterreading/domain"
	paymentdomain "github.com/propline/propline/internal/payment/domain"
	propertydomain "github.com/propline/propline/internal/property/domain"
	unitfeedomain "github.com/propline/propline/internal/unitfee/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var readingErr *meterreadingdomain.InvalidMeterReadingError
	if errors.As(err, &readingErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   "current_reading",
					Code:    "invalid_meter_reading",
					Message: readingErr.Error(),
				},
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: err.Error(),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, billingdomain.ErrGenerationLocked):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billingdomain.ErrInvalidCompany),
		errors.Is(err, feetypedomain.ErrInvalidCompany),
		errors.Is(err, leasedomain.ErrInvalidCompany),
		errors.Is(err, meterreadingdomain.ErrInvalidCompany),
		errors.Is(err, paymentdomain.ErrInvalidCompany),
		errors.Is(err, propertydomain.ErrInvalidCompany),
		errors.Is(err, unitfeedomain.ErrInvalidCompany),
		errors.Is(err, feetypedomain.ErrInvalidCalculationType),
		errors.Is(err, meterreadingdomain.ErrInvalidBillingMonth),
		errors.Is(err, meterreadingdomain.ErrFeeTypeNotMetered),
		errors.Is(err, paymentdomain.ErrInvalidPaymentAmount),
		errors.Is(err, billingdomain.ErrMissingIssueDate),
		errors.Is(err, billingdomain.ErrMissingDueDate),
		errors.Is(err, billingdomain.ErrInvalidIssueDueOrder),
		errors.Is(err, billingdomain.ErrNoActiveLeases),
		errors.Is(err, billingdomain.ErrAllUnitsBilled):
		return true
	default:
		return strings.Contains(err.Error(), "invalid billing month")
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, feetypedomain.ErrDuplicateFeeTypeCode),
		errors.Is(err, leasedomain.ErrUnitOccupied),
		errors.Is(err, billingdomain.ErrBillingCancelled):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, propertydomain.ErrPropertyNotFound),
		errors.Is(err, propertydomain.ErrUnitNotFound),
		errors.Is(err, leasedomain.ErrLeaseNotFound),
		errors.Is(err, leasedomain.ErrTenantNotFound),
		errors.Is(err, feetypedomain.ErrFeeTypeNotFound),
		errors.Is(err, unitfeedomain.ErrOverrideNotFound),
		errors.Is(err, billingdomain.ErrBillingNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "invalid_request" {
		return "request"
	}
	return ""
}

// classifyErrorForLog labels request errors for structured logging.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	switch {
	case asValidationErrors(err) != nil, isValidationError(err):
		return "validation_error", validationErrorCode(err)
	case isConflictError(err):
		return "conflict", err.Error()
	case isNotFoundError(err):
		return "not_found", err.Error()
	default:
		return "internal_error", err.Error()
	}
}
