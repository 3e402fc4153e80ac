package http

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"

	"golang-stock-ai/internal/dto"
	"golang-stock-ai/internal/service"
	"golang-stock-ai/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const MIMEApplicationNDJSON = "application/x-ndjson"

type HttpAPIHandler struct {
	echo        *echo.Echo
	validator   *goValidator.Validate
	log         *logger.Logger
	service     *service.Service
	middlewares []echo.MiddlewareFunc
}

func NewHttpAPIHandler(
	ctx context.Context,
	echo *echo.Echo,
	validator *goValidator.Validate,
	log *logger.Logger,
	service *service.Service,
	middlewares ...echo.MiddlewareFunc,
) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:        echo,
		validator:   validator,
		log:         log,
		service:     service,
		middlewares: middlewares,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api", h.middlewares...)
	h.SetupAnalysis(base)
	h.SetupWatchlist(base)
}

// writeRecords streams every record as one JSON line and flushes it right away.
func (h *HttpAPIHandler) writeRecords(c echo.Context, records iter.Seq[dto.AnalysisRecord]) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, MIMEApplicationNDJSON)
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(res)
	for rec := range records {
		if err := enc.Encode(rec); err != nil {
			h.log.WarnContext(c.Request().Context(), "Failed to write record, client gone", logger.ErrorField(err))
			return nil
		}
		res.Flush()
	}
	return nil
}
