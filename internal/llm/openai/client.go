package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mpilhlt/formfill-relay/internal/llm"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration // zero means no client-side timeout
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// Endpoint is the chat-completions URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.baseURL + "/chat/completions"
}

func (c *Client) Complete(ctx context.Context, req goopenai.ChatCompletionRequest) (*llm.Completion, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Info("calling upstream", zap.String("url", c.Endpoint()), zap.String("model", req.Model))

	respBody, statusCode, err := llm.DoRequest(c.client, httpReq)
	if err != nil {
		return nil, err
	}

	c.logger.Info("upstream response received", zap.Int("status", statusCode))
	c.logger.Info("upstream response body", zap.ByteString("body", respBody))

	completion, err := llm.ParseCompletion(statusCode, respBody)
	var upstreamErr *llm.UpstreamError
	if errors.As(err, &upstreamErr) {
		c.logger.Warn("upstream error",
			zap.Int("status", upstreamErr.StatusCode),
			zap.ByteString("body", upstreamErr.Body),
		)
	}
	return completion, err
}

var _ llm.Client = (*Client)(nil)
