package errutil

import "net/http"

// CoreStatus is the machine-readable error code carried by every BaseError.
type CoreStatus string

const (
	StatusNotFound         CoreStatus = "NOT_FOUND"
	StatusConflict         CoreStatus = "CONFLICT"
	StatusBadRequest       CoreStatus = "BAD_REQUEST"
	StatusValidationFailed CoreStatus = "VALIDATION_FAILED"
	StatusInternal         CoreStatus = "INTERNAL"
	StatusUnauthorized     CoreStatus = "UNAUTHORIZED"
	StatusForbidden        CoreStatus = "FORBIDDEN"
	StatusTooManyRequests  CoreStatus = "TOO_MANY_REQUESTS"

	// Ledger domain statuses.
	StatusInvalidPromotion    CoreStatus = "INVALID_PROMOTION"
	StatusMinimumSpendNotMet  CoreStatus = "MINIMUM_SPEND_NOT_MET"
	StatusInsufficientBalance CoreStatus = "INSUFFICIENT_BALANCE"
	StatusUnverified          CoreStatus = "UNVERIFIED"
	StatusCapacityExceeded    CoreStatus = "CAPACITY_EXCEEDED"
	StatusAlreadyProcessed    CoreStatus = "ALREADY_PROCESSED"
	StatusWrongType           CoreStatus = "WRONG_TYPE"
)

// HTTPStatus maps a status code to the HTTP response code the error
// middleware renders. Domain-rule failures are 422s; a lost race on an
// already-processed record is a 409.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusNotFound:
		return http.StatusNotFound
	case StatusConflict, StatusAlreadyProcessed:
		return http.StatusConflict
	case StatusBadRequest:
		return http.StatusBadRequest
	case StatusValidationFailed:
		return http.StatusUnprocessableEntity
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusTooManyRequests:
		return http.StatusTooManyRequests
	case StatusInvalidPromotion,
		StatusMinimumSpendNotMet,
		StatusInsufficientBalance,
		StatusUnverified,
		StatusCapacityExceeded,
		StatusWrongType:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
