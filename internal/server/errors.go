package server

import (
	"errors"
	"net/http"
	"strings"

	academicyeardomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/academicyear/domain"
	billingperioddomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod/domain"
	feedomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	importerdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/importer/domain"
	notificationdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	otherpaymentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/domain"
	paymentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/payment/domain"
	studentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/gin-gonic/gin"
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
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
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
					Message: validationErrorMessage(err),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
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
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
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

// classifyErrorForLog returns the response type and a stable code for request logs.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if vErr := asValidationErrors(err); vErr != nil {
		if len(vErr.Errors) > 0 {
			return "validation_error", vErr.Errors[0].Code
		}
		return "validation_error", "invalid_request"
	}
	_, payload := mapError(err)
	if payload.Type == "internal_error" {
		return payload.Type, "internal_error"
	}
	return payload.Type, rootCode(err)
}

func rootCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrs = []error{
	ErrInvalidRequest,
	pagination.ErrInvalidPageToken,

	academicyeardomain.ErrInvalidID,
	academicyeardomain.ErrInvalidYear,

	billingperioddomain.ErrInvalidID,
	billingperioddomain.ErrInvalidAcademicYear,
	billingperioddomain.ErrInvalidMonth,
	billingperioddomain.ErrInvalidDueDate,
	billingperioddomain.ErrInvalidLabel,

	studentdomain.ErrInvalidID,
	studentdomain.ErrInvalidName,
	studentdomain.ErrInvalidClass,
	studentdomain.ErrInvalidEnrollmentYear,
	studentdomain.ErrInvalidParentPhone,
	studentdomain.ErrInvalidPassword,

	feedomain.ErrInvalidID,
	feedomain.ErrInvalidAmount,
	feedomain.ErrInvalidStudentIDs,
	feedomain.ErrInvalidPeriod,
	feedomain.ErrInvalidStatus,

	otherpaymentdomain.ErrInvalidID,
	otherpaymentdomain.ErrInvalidName,
	otherpaymentdomain.ErrInvalidAmount,
	otherpaymentdomain.ErrInvalidStudentIDs,
	otherpaymentdomain.ErrInvalidStatus,

	notificationdomain.ErrInvalidID,
	notificationdomain.ErrInvalidStudent,
	notificationdomain.ErrInvalidType,
	notificationdomain.ErrInvalidStatus,

	paymentdomain.ErrInvalidPayload,

	importerdomain.ErrUnsupportedFormat,
	importerdomain.ErrEmptyFile,
	importerdomain.ErrInvalidMapping,
	importerdomain.ErrMissingColumns,
	importerdomain.ErrTooManyRows,
	importerdomain.ErrNoValidRows,
}

var conflictErrs = []error{
	ErrConflict,
	academicyeardomain.ErrDuplicateYear,
	academicyeardomain.ErrHasPeriods,
	billingperioddomain.ErrDuplicatePeriod,
	billingperioddomain.ErrHasPayments,
	billingperioddomain.ErrHasFees,
	studentdomain.ErrDuplicateLoginID,
	feedomain.ErrDuplicateAssignment,
	feedomain.ErrAlreadyPaid,
	feedomain.ErrNotDueYet,
	feedomain.ErrNotPending,
	feedomain.ErrPaidFeeLocked,
	feedomain.ErrSweepInProgress,
	otherpaymentdomain.ErrAlreadyPaid,
	otherpaymentdomain.ErrPaidLocked,
	notificationdomain.ErrDeliveryInProgress,
	notificationdomain.ErrNotDeliverable,
}

var notFoundErrs = []error{
	ErrNotFound,
	academicyeardomain.ErrNotFound,
	billingperioddomain.ErrNotFound,
	studentdomain.ErrNotFound,
	feedomain.ErrNotFound,
	feedomain.ErrPeriodNotFound,
	feedomain.ErrStudentNotFound,
	otherpaymentdomain.ErrNotFound,
	otherpaymentdomain.ErrStudentNotFound,
	notificationdomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

func isValidationError(err error) bool {
	return matchesAny(err, validationErrs)
}

func isConflictError(err error) bool {
	return matchesAny(err, conflictErrs)
}

func isNotFoundError(err error) bool {
	return matchesAny(err, notFoundErrs)
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationErrorCode(err error) string {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "invalid_request"
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request", "invalid_payload":
		return "request"
	case "invalid_page_token":
		return "page_token"
	case "missing_required_columns", "invalid_mapping":
		return "mapping"
	case "unsupported_format", "empty_file", "too_many_rows", "no_valid_rows":
		return "file"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

// validationErrorMessage keeps the detail of wrapped sentinels, such as the missing column names.
func validationErrorMessage(err error) string {
	code := validationErrorCode(err)
	if msg := err.Error(); msg != code {
		return msg
	}
	return strings.ReplaceAll(code, "_", " ")
}

func conflictMessage(err error) string {
	for _, target := range conflictErrs {
		if errors.Is(err, target) {
			return strings.ReplaceAll(target.Error(), "_", " ")
		}
	}
	return "conflict"
}
