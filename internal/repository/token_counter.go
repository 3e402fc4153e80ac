package repository

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang-stock-ai/config"

	"google.golang.org/genai"
)

// TokenCounter sizes a prompt before it is charged against the token limiter.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// EstimateTokens is a provider independent guess of roughly four characters per token.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text)/4 + 1
}

type estimateCounter struct{}

func (estimateCounter) CountTokens(_ context.Context, text string) (int, error) {
	return EstimateTokens(text), nil
}

type geminiCounter struct {
	client *genai.Client
	model  string
}

func (g *geminiCounter) CountTokens(ctx context.Context, text string) (int, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, "user"),
	}
	resp, err := g.client.Models.CountTokens(ctx, g.model, contents, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return int(resp.TotalTokens), nil
}

// NewTokenCounter picks the counter configured under ai.token_counter.
func NewTokenCounter(ctx context.Context, cfg config.TokenCounter) (TokenCounter, error) {
	if cfg.Provider != "gemini" {
		return estimateCounter{}, nil
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini token counter needs ai.token_counter.api_key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &geminiCounter{client: client, model: cfg.Model}, nil
}
