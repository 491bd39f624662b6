package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/skinvault/internal/services"
)

// Stable values of ErrorResponse.Code. Clients branch on these, never on
// the message text.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"

	ErrCodeScrapeFailed = "scrape_failed"
	ErrCodeAssetFailed  = "asset_failed"
	ErrCodeListFailed   = "list_failed"
)

// statusOf maps a service error to its HTTP status. Anything that is not
// the caller's fault or the store's is blamed on the upstream catalog.
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrCategoryNotFound), errors.Is(err, services.ErrPaintNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrStore):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// failErr writes err with the status statusOf picks. Client errors get the
// generic code for their status; code applies to everything else.
func failErr(c *gin.Context, err error, code string) {
	status := statusOf(err)
	switch status {
	case http.StatusBadRequest:
		code = ErrCodeBadRequest
	case http.StatusNotFound:
		code = ErrCodeNotFound
	}
	fail(c, status, code, err.Error())
}
