package http

import (
	"net/http"

	"golang-stock-ai/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupAnalysis(base *echo.Group) {
	v1 := base.Group("/v1")
	v1.POST("/analyze", h.analyze)
	v1.POST("/scan", h.scan)
}

func (h *HttpAPIHandler) analyze(c echo.Context) error {
	req := new(dto.AnalyzeRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	return h.writeRecords(c, h.service.AnalyzerService.Analyze(c.Request().Context(), *req))
}

func (h *HttpAPIHandler) scan(c echo.Context) error {
	req := new(dto.ScanRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	return h.writeRecords(c, h.service.ScanService.Scan(c.Request().Context(), *req))
}
