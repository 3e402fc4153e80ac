package httpclient

import (
	"context"
	"io"
	"net/http"
)

type BaseResponse struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// StreamResponse is a response whose body has not been read. The caller owns Body and must close it.
type StreamResponse struct {
	StatusCode int
	Headers    http.Header
	Body       io.ReadCloser
}

// IsSuccess reports a 2xx status.
func (r *StreamResponse) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

type HTTPClient interface {
	Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error)
	Post(ctx context.Context, endpoint string, body interface{}, headers map[string]string, result interface{}) (*BaseResponse, error)
	PostStream(ctx context.Context, endpoint string, body interface{}, headers map[string]string) (*StreamResponse, error)
}
