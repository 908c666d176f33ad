package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

var (
	ErrRequestFailed     = errors.New("request failed")
	ErrEmptyResponse     = errors.New("empty response")
	ErrMalformedResponse = errors.New("malformed response")
)

// Client sends one chat-completion request and returns the first choice.
//
// Errors are one of:
//   - *UpstreamError when the API answered with a non-2xx status,
//   - ErrRequestFailed (wrapped) when the request could not be sent or read,
//   - ErrMalformedResponse or ErrEmptyResponse (wrapped) when a 2xx body
//     did not carry a usable completion.
type Client interface {
	Complete(ctx context.Context, req openai.ChatCompletionRequest) (*Completion, error)
}

// Completion is the successful outcome of a call.
type Completion struct {
	Content    string
	StatusCode int
	Body       json.RawMessage
}

// UpstreamError carries a non-2xx answer with its JSON body untouched.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}
