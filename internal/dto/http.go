package dto

import "net/http"

type BaseResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func NewBaseResponse(code int, message string, data interface{}) *BaseResponse {
	return &BaseResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func NewBadRequestResponse(message string) *BaseResponse {
	return NewBaseResponse(http.StatusBadRequest, message, nil)
}

func NewSuccessResponse(message string, data interface{}) *BaseResponse {
	return NewBaseResponse(http.StatusOK, message, data)
}

type AnalyzeRequest struct {
	StockCode  string     `json:"stock_code" validate:"required,max=16"`
	MarketType MarketType `json:"market_type" validate:"omitempty,oneof=A HK US ETF LOF"`
	Stream     *bool      `json:"stream"`
	Sector     string     `json:"sector"`
	Concepts   []string   `json:"concepts"`
}

type ScanRequest struct {
	StockCodes []string   `json:"stock_codes" validate:"required,min=1,max=100,dive,required,max=16"`
	MarketType MarketType `json:"market_type" validate:"omitempty,oneof=A HK US ETF LOF"`
	Stream     *bool      `json:"stream"`
}
