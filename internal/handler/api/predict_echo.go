package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	models "StockCast/internal/domain/models"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/usecase"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const rootMessage = "Please use the /predict endpoint to get a prediction."

var registerOnce sync.Once

func registerValidations() {
	registerOnce.Do(func() {
		if err := xhttp.RegisterStringValidation("ticker", models.IsValidSymbol); err != nil {
			panic(err)
		}
	})
}

// HealthCheck pings one piece of infrastructure.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthChecks []HealthCheck

// PredictEchoHandler serves the synchronous and asynchronous prediction API.
type PredictEchoHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.Predictor
	requests  *usecase.Requests
	limiter   *ratelimit.Limiter
	checks    HealthChecks

	wsPoll time.Duration
}

func NewPredictEchoHandler(
	logger *xlogger.Logger,
	predictor *usecase.Predictor,
	requests *usecase.Requests,
	limiter *ratelimit.Limiter,
	checks HealthChecks,
) *PredictEchoHandler {
	registerValidations()
	return &PredictEchoHandler{
		logger:    logger,
		predictor: predictor,
		requests:  requests,
		limiter:   limiter,
		checks:    checks,
		wsPoll:    500 * time.Millisecond,
	}
}

func (h *PredictEchoHandler) RegisterRoutes(e *echo.Echo) {
	limited := RateLimit(h.limiter)

	e.GET("/", h.Root)
	e.GET("/predict", h.Predict, limited)
	e.POST("/predict", h.Predict, limited)
	e.POST("/request", h.Submit, limited)
	e.GET("/status/:id", h.Status)
	e.GET("/ws/status/:id", h.StatusStream)
	e.GET("/health", h.Health)
}

func (h *PredictEchoHandler) Root(c echo.Context) error {
	return c.String(http.StatusOK, rootMessage)
}

func (h *PredictEchoHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.predictor.Predict(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "predict", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictEchoHandler) Submit(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	d, err := h.requests.Submit(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "submit", err)
	}
	return xhttp.AcceptedResponse(c, map[string]interface{}{
		"id":     d.ID,
		"status": d.Status,
	})
}

func (h *PredictEchoHandler) Status(c echo.Context) error {
	id, aerr := parseID(c)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	d, err := h.requests.Status(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "status", err)
	}
	return xhttp.SuccessResponse(c, d)
}

func (h *PredictEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			h.logger.Warn("health check failed", xlogger.String("check", chk.Name), xlogger.Error(err))
			results[chk.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[chk.Name] = "ok"
	}
	return xhttp.DataResponse(c, status, results)
}

func (h *PredictEchoHandler) fail(c echo.Context, op string, err error) error {
	aerr := toAppError(err)
	if aerr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, aerr)
}

func parseID(c echo.Context) (uuid.UUID, *xhttp.AppError) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, xhttp.BadRequestError("id", "id must be a uuid").WithError(err)
	}
	return id, nil
}

var _ xhttp.Handler = (*PredictEchoHandler)(nil)
