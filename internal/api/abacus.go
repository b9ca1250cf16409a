package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/sparshsam/wager-ai-assistant/internal/config"
	"github.com/sparshsam/wager-ai-assistant/internal/domain"
)

// AbacusClient talks to the abacus.ai chat-completions endpoint. One blocking
// round trip per call, no retries; a non-2xx status is a hard failure.
type AbacusClient struct {
	apiKey      string
	baseURL     string
	model       string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	LimitRequests     int `json:"limit_requests"`
	RemainingRequests int `json:"remaining_requests"`
	LimitTokens       int `json:"limit_tokens"`
	RemainingTokens   int `json:"remaining_tokens"`

	UpdatedAt time.Time `json:"updated_at"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions control a single chat-completion call. JSONObject asks
// the endpoint for json_object response format.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
	JSONObject  bool
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewAbacusClient(cfg *config.Config) *AbacusClient {
	return &AbacusClient{
		apiKey:  cfg.AbacusAPIKey,
		baseURL: cfg.AbacusBaseURL,
		model:   cfg.Model,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         90 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *AbacusClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *AbacusClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if v := string(resp.Header.Peek("X-Ratelimit-Limit-Requests")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.rateLimit.LimitRequests = n
		}
	}
	if v := string(resp.Header.Peek("X-Ratelimit-Remaining-Requests")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.rateLimit.RemainingRequests = n
		}
	}
	if v := string(resp.Header.Peek("X-Ratelimit-Limit-Tokens")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.rateLimit.LimitTokens = n
		}
	}
	if v := string(resp.Header.Peek("X-Ratelimit-Remaining-Tokens")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.rateLimit.RemainingTokens = n
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

// Complete sends one system+user exchange and returns the assistant content.
func (c *AbacusClient) Complete(ctx context.Context, system, user string, opts CompletionOptions) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if opts.JSONObject {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.SetBody(body)

	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err != nil {
		return "", &domain.UpstreamError{Err: err}
	}

	c.updateRateLimit(resp)

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", &domain.UpstreamError{Status: resp.StatusCode()}
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", &domain.UpstreamError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}
