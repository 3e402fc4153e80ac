package common

const (
	KEY_STOCK_DATA       = "stock_data:%s:%s:%s:%s"
	KEY_WATCHLIST_LATEST = "watchlist:latest"
	KEY_AI_REQUEST_LIMIT = "ai_request"
	KEY_LOG_SESSION_ID   = "session_id"
	KEY_LOG_STOCK_CODE   = "stock_code"
	KEY_LOG_MARKET_TYPE  = "market_type"
)

const (
	DONE_SENTINEL   = "[DONE]"
	SSE_DATA_PREFIX = "data:"
)

// MaxLoggedBodyBytes bounds response bodies copied into logs and error records.
const MaxLoggedBodyBytes = 500
