package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang-stock-ai/config"
	"golang-stock-ai/pkg/common"
	"golang-stock-ai/pkg/httpclient"
	"golang-stock-ai/pkg/logger"
	"golang-stock-ai/pkg/ratelimit"

	openai "github.com/sashabaranov/go-openai"
)

// AIRepository talks to an OpenAI compatible chat completion endpoint.
type AIRepository interface {
	OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.StreamResponse, error)
	Complete(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.BaseResponse, error)
}

type aiRepository struct {
	streamClient    httpclient.HTTPClient
	httpClient      httpclient.HTTPClient
	cfg             *config.Config
	logger          *logger.Logger
	endpoint        string
	tokenLimiter    *ratelimit.TokenLimiter
	requestLimiters *ratelimit.LimiterStore
	tokenCounter    TokenCounter
}

func NewAIRepository(cfg *config.Config, log *logger.Logger, counter TokenCounter) AIRepository {
	return &aiRepository{
		streamClient:    httpclient.NewStreaming(log, "", cfg.AI.Timeout, cfg.AI.APIKey),
		httpClient:      httpclient.New(log, "", cfg.AI.Timeout, cfg.AI.APIKey),
		cfg:             cfg,
		logger:          log,
		endpoint:        ChatCompletionsURL(cfg.AI.BaseURL),
		tokenLimiter:    ratelimit.NewTokenLimiter(cfg.AI.MaxTokenPerMinute),
		requestLimiters: ratelimit.NewPerMinuteLimiterStore(cfg.AI.MaxRequestPerMinute),
		tokenCounter:    counter,
	}
}

func (r *aiRepository) OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.StreamResponse, error) {
	req.Stream = true
	if err := r.waitForCapacity(ctx, req); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := r.streamClient.PostStream(ctx, r.endpoint, req, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream to model endpoint: %w", err)
	}

	r.logger.DebugContext(ctx, "model stream opened",
		logger.IntField("status_code", resp.StatusCode),
		logger.Field("latency", time.Since(start)),
	)
	return resp, nil
}

func (r *aiRepository) Complete(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.BaseResponse, error) {
	req.Stream = false
	if err := r.waitForCapacity(ctx, req); err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Post(ctx, r.endpoint, req, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to model endpoint: %w", err)
	}
	return resp, nil
}

// waitForCapacity charges the prompt against the token budget, then takes a request slot for the model.
func (r *aiRepository) waitForCapacity(ctx context.Context, req openai.ChatCompletionRequest) error {
	tokens := r.countTokens(ctx, req)

	r.logger.DebugContext(ctx, "model token count",
		logger.IntField("total_tokens", tokens),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)
	if err := r.tokenLimiter.Wait(ctx, tokens); err != nil {
		return fmt.Errorf("failed to wait for model token limit: %w", err)
	}

	if err := r.requestLimiters.Wait(ctx, common.KEY_AI_REQUEST_LIMIT+":"+req.Model); err != nil {
		return fmt.Errorf("failed to wait for model request limit: %w", err)
	}

	if tokens > r.cfg.AI.MaxTokenPerMinute/2 {
		r.logger.WarnContext(ctx, "Token has exceeded 50% of the limit", logger.IntField("remaining", r.tokenLimiter.GetRemaining()))
	}
	return nil
}

func (r *aiRepository) countTokens(ctx context.Context, req openai.ChatCompletionRequest) int {
	var sb strings.Builder
	for _, m := range req.Messages {
		sb.WriteString(m.Content)
	}
	text := sb.String()

	if r.tokenCounter != nil {
		n, err := r.tokenCounter.CountTokens(ctx, text)
		if err == nil {
			return n
		}
		r.logger.WarnContext(ctx, "failed to count tokens, using estimate", logger.ErrorField(err))
	}
	return EstimateTokens(text)
}

var versionSuffix = regexp.MustCompile(`/v\d+$`)

// ChatCompletionsURL turns a configured base URL into the chat completion endpoint. A trailing
// "#" means the URL is already complete.
func ChatCompletionsURL(base string) string {
	base = strings.TrimSpace(base)
	if strings.HasSuffix(base, "#") {
		return strings.TrimSuffix(base, "#")
	}
	if strings.HasSuffix(strings.TrimRight(base, "/"), "/chat/completions") {
		return strings.TrimRight(base, "/")
	}
	if strings.HasSuffix(base, "/") {
		return base + "chat/completions"
	}
	if versionSuffix.MatchString(base) {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}
