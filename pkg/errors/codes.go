package errors

import "net/http"

// Code is the stable, client-facing error identifier.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// Sales engine outcomes.
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeInvalidPricing    Code = "INVALID_PRICING"
	CodeTransientStorage  Code = "TRANSIENT_STORAGE_ERROR"
)

// Metadata describes how a code crosses the HTTP boundary.
//
// PublicMessage is sent unless ExposeMessage allows the error's own message
// through. Details are only serialized when DetailsAllowed is set.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

const (
	retryable = 1 << iota
	exposeMessage
	detailsAllowed
)

func meta(status int, public string, flags int) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		ExposeMessage:  flags&exposeMessage != 0,
		DetailsAllowed: flags&detailsAllowed != 0,
	}
}

var registry = map[Code]Metadata{
	CodeValidation:        meta(http.StatusBadRequest, "validation failed", exposeMessage|detailsAllowed),
	CodeUnauthorized:      meta(http.StatusUnauthorized, "authentication required", exposeMessage),
	CodeForbidden:         meta(http.StatusForbidden, "access denied", exposeMessage),
	CodeNotFound:          meta(http.StatusNotFound, "resource not found", exposeMessage|detailsAllowed),
	CodeConflict:          meta(http.StatusConflict, "conflict detected", exposeMessage),
	CodeIdempotency:       meta(http.StatusConflict, "idempotency key reused", exposeMessage|detailsAllowed),
	CodeRateLimit:         meta(http.StatusTooManyRequests, "rate limit exceeded", exposeMessage),
	CodeInternal:          meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:        meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|detailsAllowed),
	CodeInsufficientStock: meta(http.StatusBadRequest, "insufficient stock", exposeMessage|detailsAllowed),
	CodeInvalidPricing:    meta(http.StatusBadRequest, "product has an invalid price", exposeMessage|detailsAllowed),
	CodeTransientStorage:  meta(http.StatusServiceUnavailable, "storage temporarily unavailable, retry the request", retryable),
}

// MetadataFor returns the metadata registered for code. Unknown codes are
// treated as CodeInternal.
func MetadataFor(code Code) Metadata {
	if m, ok := registry[code]; ok {
		return m
	}
	return registry[CodeInternal]
}
