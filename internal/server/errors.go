package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/repairdesk/internal/backfill"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	documentdomain "github.com/smallbiznis/repairdesk/internal/document/domain"
	inventorydomain "github.com/smallbiznis/repairdesk/internal/inventory/domain"
	"github.com/smallbiznis/repairdesk/internal/lock"
	organizationdomain "github.com/smallbiznis/repairdesk/internal/organization/domain"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	techniciandomain "github.com/smallbiznis/repairdesk/internal/technician/domain"
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
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
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

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConfigurationError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "configuration_error",
			Message: configurationErrorMessage(err),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, documentdomain.ErrRendererUnavailable),
		errors.Is(err, lock.ErrNotAcquired):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same taxonomy clients see.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if err != nil && !strings.ContainsAny(err.Error(), " :") {
		code = err.Error()
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	organizationdomain.ErrInvalidOrganization,
	organizationdomain.ErrInvalidName,
	organizationdomain.ErrInvalidCountry,
	currencydomain.ErrInvalidOrganization,
	currencydomain.ErrInvalidCode,
	currencydomain.ErrInvalidName,
	currencydomain.ErrInvalidDecimalDigits,
	taxdomain.ErrInvalidOrganization,
	taxdomain.ErrInvalidName,
	taxdomain.ErrInvalidID,
	taxdomain.ErrInvalidCountryCode,
	taxdomain.ErrInvalidTaxRate,
	customerdomain.ErrInvalidOrganization,
	customerdomain.ErrInvalidName,
	customerdomain.ErrInvalidEmail,
	customerdomain.ErrInvalidID,
	customerdomain.ErrInvalidDevice,
	techniciandomain.ErrInvalidOrganization,
	techniciandomain.ErrInvalidName,
	techniciandomain.ErrInvalidID,
	inventorydomain.ErrInvalidOrganization,
	inventorydomain.ErrInvalidSKU,
	inventorydomain.ErrInvalidName,
	inventorydomain.ErrInvalidPrice,
	inventorydomain.ErrInvalidQuantity,
	inventorydomain.ErrInvalidID,
	repairdomain.ErrInvalidOrganization,
	repairdomain.ErrInvalidID,
	repairdomain.ErrInvalidCustomer,
	repairdomain.ErrInvalidDevice,
	repairdomain.ErrInvalidTechnician,
	repairdomain.ErrInvalidStatus,
	repairdomain.ErrInvalidPriority,
	repairdomain.ErrInvalidDescription,
	repairdomain.ErrInvalidQuantity,
	repairdomain.ErrInvalidUnitPrice,
	repairdomain.ErrInvalidItemType,
	documentdomain.ErrInvalidOrganization,
	documentdomain.ErrInvalidID,
	documentdomain.ErrInvalidKind,
	documentdomain.ErrInvalidStatus,
	documentdomain.ErrInvalidTax,
	documentdomain.ErrInvalidAmount,
	documentdomain.ErrOverpayment,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Configuration faults mean reference data is missing for the tenant; they
// are reported, never papered over.
func isConfigurationError(err error) bool {
	return errors.Is(err, currencydomain.ErrNoCurrencyConfigured) ||
		errors.Is(err, taxdomain.ErrNoDefaultTaxRate) ||
		errors.Is(err, backfill.ErrInvalidDefaults)
}

func configurationErrorMessage(err error) string {
	switch {
	case errors.Is(err, currencydomain.ErrNoCurrencyConfigured):
		return "no currency is configured for this organization"
	case errors.Is(err, taxdomain.ErrNoDefaultTaxRate):
		return "no default tax rate is configured for this organization"
	default:
		return "reference data is misconfigured"
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, organizationdomain.ErrSlugTaken),
		errors.Is(err, currencydomain.ErrDuplicateCode),
		errors.Is(err, taxdomain.ErrDuplicateRate),
		errors.Is(err, inventorydomain.ErrDuplicateSKU),
		errors.Is(err, repairdomain.ErrTicketNumberExhausted),
		errors.Is(err, documentdomain.ErrNumberExhausted),
		errors.Is(err, documentdomain.ErrStatusTransition),
		errors.Is(err, documentdomain.ErrAlreadyPaid):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	for _, e := range []error{
		organizationdomain.ErrSlugTaken,
		currencydomain.ErrDuplicateCode,
		taxdomain.ErrDuplicateRate,
		inventorydomain.ErrDuplicateSKU,
		repairdomain.ErrTicketNumberExhausted,
		documentdomain.ErrNumberExhausted,
		documentdomain.ErrStatusTransition,
		documentdomain.ErrAlreadyPaid,
	} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "conflict"
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, backfill.ErrOrganizationNotFound),
		errors.Is(err, currencydomain.ErrNotFound),
		errors.Is(err, taxdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, techniciandomain.ErrNotFound),
		errors.Is(err, inventorydomain.ErrNotFound),
		errors.Is(err, repairdomain.ErrNotFound),
		errors.Is(err, repairdomain.ErrItemNotFound),
		errors.Is(err, documentdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "payment_exceeds_balance":
		return "payment exceeds the outstanding balance"
	default:
		return "invalid value"
	}
}
