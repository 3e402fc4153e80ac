package http

import (
	"errors"
	"net/http"

	"golang-stock-ai/internal/dto"
	"golang-stock-ai/internal/service"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupWatchlist(base *echo.Group) {
	v1 := base.Group("/v1/watchlist")
	{
		v1.GET("/latest", h.latestWatchlist)
		v1.POST("/run", h.runWatchlist)
	}
}

func (h *HttpAPIHandler) latestWatchlist(c echo.Context) error {
	snapshot, found := h.service.SchedulerService.Latest()
	if !found {
		return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, "no watchlist scan available yet", nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("latest watchlist scan", snapshot))
}

func (h *HttpAPIHandler) runWatchlist(c echo.Context) error {
	snapshot, err := h.service.SchedulerService.RunOnce(c.Request().Context())
	if err != nil {
		response := dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil)
		if errors.Is(err, service.ErrScanInProgress) {
			response.Code = http.StatusConflict
		}
		return c.JSON(response.Code, response)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("watchlist scan finished", snapshot))
}
