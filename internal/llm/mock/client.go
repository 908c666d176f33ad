package mock

import (
	"context"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mpilhlt/formfill-relay/internal/llm"
)

type Client struct {
	mu sync.Mutex

	Response string
	Error    error
	Delay    time.Duration

	CallCount   int
	LastRequest openai.ChatCompletionRequest
	AllCalls    []openai.ChatCompletionRequest
}

func New() *Client {
	return &Client{
		Response: `{"name":"Jane Doe"}`,
	}
}

func (c *Client) WithResponse(response string) *Client {
	c.mu.Lock()
	c.Response = response
	c.mu.Unlock()
	return c
}

func (c *Client) WithError(err error) *Client {
	c.mu.Lock()
	c.Error = err
	c.mu.Unlock()
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.mu.Lock()
	c.Delay = delay
	c.mu.Unlock()
	return c
}

func (c *Client) Complete(ctx context.Context, req openai.ChatCompletionRequest) (*llm.Completion, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = req
	c.AllCalls = append(c.AllCalls, req)
	response, err, delay := c.Response, c.Error, c.Delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}

	return &llm.Completion{Content: response, StatusCode: 200}, nil
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}

var _ llm.Client = (*Client)(nil)
