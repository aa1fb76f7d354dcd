package handler

import (
	"errors"
	"net/http"

	"github.com/yourorg/quote-vault/internal/client"
	"github.com/yourorg/quote-vault/internal/quota"
	"github.com/yourorg/quote-vault/internal/repository"
	"github.com/yourorg/quote-vault/internal/schema"
	"github.com/yourorg/quote-vault/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps a service error to the HTTP status returned to callers
func statusFor(err error) int {
	var (
		validationErr *client.ValidationError
		businessErr   *client.BusinessError
		httpErr       *client.HTTPError
		malformedErr  *client.MalformedResponseError
		schemaErr     *schema.SchemaValidationError
		transportErr  *client.TransportError
	)

	switch {
	case errors.Is(err, quota.ErrQuotaExhausted):
		return http.StatusTooManyRequests
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &businessErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrAssetNotFound),
		errors.Is(err, repository.ErrTimeSeriesNotFound),
		errors.Is(err, repository.ErrCurrencyNotFound),
		errors.Is(err, repository.ErrAssetClassNotFound):
		return http.StatusNotFound
	case errors.As(err, &httpErr), errors.As(err, &malformedErr), errors.As(err, &schemaErr):
		return http.StatusBadGateway
	case errors.As(err, &transportErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the mapped status for err. Internal failures are
// logged and answered with msg instead of the error text.
func respondError(c *gin.Context, logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	_ = c.Error(err)

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg, append(fields, zap.Error(err))...)
		utils.SendErrorResponse(c, status, msg)
		return
	}
	utils.SendErrorResponse(c, status, err.Error())
}
