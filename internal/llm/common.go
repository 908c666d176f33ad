package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const (
	FillSystemPrompt = "You are an AI assistant that matches form fields based on labels, names, and placeholders."
	fillUserTemplate = "Given this form structure: %s\nFill it with appropriate values."
)

// NewFillRequest builds the two-message request asking the model to fill
// the form described by formData, which must be compact JSON.
func NewFillRequest(model string, formData json.RawMessage, maxTokens int) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: FillSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(fillUserTemplate, formData)},
		},
		MaxTokens: maxTokens,
	}
}

func DoRequest(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response: %v", ErrRequestFailed, err)
	}

	return body, resp.StatusCode, nil
}

// ParseCompletion turns a raw answer into a Completion or an error. The
// body must be JSON whatever the status.
func ParseCompletion(statusCode int, body []byte) (*Completion, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: status %d with non-JSON body", ErrMalformedResponse, statusCode)
	}

	if statusCode < 200 || statusCode > 299 {
		return nil, &UpstreamError{StatusCode: statusCode, Body: json.RawMessage(body)}
	}

	// message is a pointer so that a null or absent one is told apart from
	// empty content.
	var resp struct {
		Choices []struct {
			Message *openai.ChatCompletionMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}
	message := resp.Choices[0].Message
	if message == nil {
		return nil, fmt.Errorf("%w: first choice has no message", ErrMalformedResponse)
	}

	return &Completion{
		Content:    message.Content,
		StatusCode: statusCode,
		Body:       json.RawMessage(body),
	}, nil
}
