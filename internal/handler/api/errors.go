package api

import (
	"errors"

	models "StockCast/internal/domain/models"
	xhttp "StockCast/pkg/http"
	"StockCast/pkg/queue"
)

// toAppError maps domain errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var aerr *xhttp.AppError
	if errors.As(err, &aerr) {
		return aerr
	}

	switch {
	case errors.Is(err, models.ErrInvalidSymbol):
		return xhttp.BadRequestError("symbol", "symbol must be 1 to 5 uppercase letters").WithError(err)
	case errors.Is(err, models.ErrInvalidTimeUnit), errors.Is(err, models.ErrTimeRange):
		return xhttp.BadRequestError("time", err.Error()).WithError(err)
	case errors.Is(err, models.ErrNoData), errors.Is(err, models.ErrInsufficientData), errors.Is(err, models.ErrDegenerateFit):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrUpstream):
		return xhttp.BadGatewayError("quote provider unavailable").WithError(err)
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundErrorf("request not found").WithError(err)
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrNotRunning):
		return xhttp.ServiceUnavailableError("request queue unavailable").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
