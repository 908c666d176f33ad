package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mpilhlt/formfill-relay/internal/handlers"
	"github.com/mpilhlt/formfill-relay/internal/llm"
	"github.com/mpilhlt/formfill-relay/internal/llm/mock"
	"github.com/mpilhlt/formfill-relay/internal/metrics"
	"github.com/mpilhlt/formfill-relay/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const missingFieldBody = `{"success":false,"error":"Missing prompt or formData"}`

func mockRelay(client *mock.Client) *handlers.Relay {
	return &handlers.Relay{
		Client:    client,
		Model:     "gpt-4o",
		MaxTokens: 200,
		Logger:    zap.NewNop(),
	}
}

func TestFillMissingFields(t *testing.T) {
	client := mock.New()
	api := startTestAPI(t, mockRelay(client), "")

	tt := []struct {
		name string
		body string
	}{
		{name: "Empty object", body: `{}`},
		{name: "Empty request body", body: ``},
		{name: "Prompt only", body: `{"prompt":"fill form"}`},
		{name: "FormData only", body: `{"formData":{"name":""}}`},
		{name: "Empty prompt", body: `{"prompt":"","formData":{"name":""}}`},
		{name: "Null formData", body: `{"prompt":"fill form","formData":null}`},
		{name: "False formData", body: `{"prompt":"fill form","formData":false}`},
		{name: "Zero formData", body: `{"prompt":"fill form","formData":0}`},
		{name: "Empty string formData", body: `{"prompt":"fill form","formData":""}`},
	}

	for _, v := range tt {
		t.Run(v.name, func(t *testing.T) {
			resp := api.Post("/fill", "Content-Type: application/json", strings.NewReader(v.body))

			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.JSONEq(t, missingFieldBody, resp.Body.String())
		})
	}

	assert.Equal(t, 0, client.Calls(), "no outbound call for invalid requests")
}

func TestFillSuccess(t *testing.T) {
	upstream := newStubUpstream(t, http.StatusOK,
		`{"choices":[{"message":{"content":"{\"name\":\"John\",\"email\":\"j@x.com\"}"}}]}`)
	m := metrics.New()
	api := startTestAPI(t, relayFor(upstream, m), "")

	resp := api.Post("/fill", map[string]any{
		"prompt":   "fill form",
		"formData": map[string]any{"name": "", "email": ""},
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true,"values":"{\"name\":\"John\",\"email\":\"j@x.com\"}"}`, resp.Body.String())

	requests := upstream.Requests()
	require.Len(t, requests, 1, "exactly one outbound call")
	got := requests[0]
	assert.Equal(t, "Bearer sk-test", got.Authorization)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, "gpt-4o", got.Body.Model)
	assert.Equal(t, 200, got.Body.MaxTokens)
	require.Len(t, got.Body.Messages, 2)
	assert.Equal(t, "system", got.Body.Messages[0].Role)
	assert.Equal(t, llm.FillSystemPrompt, got.Body.Messages[0].Content)
	assert.Equal(t, "user", got.Body.Messages[1].Role)
	assert.Contains(t, got.Body.Messages[1].Content, `{"email":"","name":""}`)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FillRequestsTotal.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FillRequestsInFlight))
}

func TestFillKeepsFormDataAsSent(t *testing.T) {
	upstream := newStubUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	api := startTestAPI(t, relayFor(upstream, nil), "")

	raw := `{"prompt":"fill form","formData":{"zeta": "", "alpha": [ {"label":"Name"} ]}}`
	resp := api.Post("/fill", "Content-Type: application/json", strings.NewReader(raw))
	require.Equal(t, http.StatusOK, resp.Code)

	requests := upstream.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t,
		"Given this form structure: {\"zeta\":\"\",\"alpha\":[{\"label\":\"Name\"}]}\nFill it with appropriate values.",
		requests[0].Body.Messages[1].Content,
	)
}

func TestFillWithoutBody(t *testing.T) {
	client := mock.New()
	api := startTestAPI(t, mockRelay(client), "")

	resp := api.Post("/fill")

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, missingFieldBody, resp.Body.String())
	assert.Equal(t, 0, client.Calls())
}

func TestFillEmptyContainersArePresent(t *testing.T) {
	client := mock.New().WithResponse("[]")
	api := startTestAPI(t, mockRelay(client), "")

	for _, formData := range []any{map[string]any{}, []any{}} {
		resp := api.Post("/fill", map[string]any{"prompt": "fill form", "formData": formData})
		assert.Equal(t, http.StatusOK, resp.Code)
	}
	assert.Equal(t, 2, client.Calls())
}

func TestFillUpstreamError(t *testing.T) {
	upstreamBody := `{"error":{"message":"Incorrect API key provided: sk-test.","type":"invalid_request_error","param":null,"code":"invalid_api_key"}}`
	upstream := newStubUpstream(t, http.StatusUnauthorized, upstreamBody)
	m := metrics.New()
	api := startTestAPI(t, relayFor(upstream, m), "")

	resp := api.Post("/fill", map[string]any{"prompt": "fill form", "formData": map[string]any{"name": ""}})

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"success":false,"error":%s}`, upstreamBody), resp.Body.String())
	assert.Len(t, upstream.Requests(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FillRequestsTotal.WithLabelValues(metrics.OutcomeUpstream)))
}

func TestFillTransportError(t *testing.T) {
	upstream := newStubUpstream(t, http.StatusOK, `{}`)
	relay := relayFor(upstream, nil)
	upstream.Close()
	api := startTestAPI(t, relay, "")

	resp := api.Post("/fill", map[string]any{"prompt": "fill form", "formData": map[string]any{"name": ""}})

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "request failed")
	assert.Contains(t, body.Error, upstream.URL)
}

func TestFillMalformedUpstreamResponse(t *testing.T) {
	tt := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{name: "No choices", status: http.StatusOK, body: `{"choices":[]}`, expected: "empty response: no choices"},
		{name: "Null message", status: http.StatusOK, body: `{"choices":[{"message":null}]}`, expected: "malformed response: first choice has no message"},
		{name: "Choice without message", status: http.StatusOK, body: `{"choices":[{}]}`, expected: "malformed response: first choice has no message"},
		{name: "HTML error page", status: http.StatusBadGateway, body: `<html>Bad Gateway</html>`, expected: "malformed response: status 502 with non-JSON body"},
	}

	for _, v := range tt {
		t.Run(v.name, func(t *testing.T) {
			upstream := newStubUpstream(t, v.status, v.body)
			api := startTestAPI(t, relayFor(upstream, nil), "")

			resp := api.Post("/fill", map[string]any{"prompt": "fill form", "formData": map[string]any{"name": ""}})

			assert.Equal(t, http.StatusInternalServerError, resp.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"success":false,"error":%q}`, v.expected), resp.Body.String())
		})
	}
}

func TestFillMockError(t *testing.T) {
	client := mock.New().WithError(errors.New("boom"))
	api := startTestAPI(t, mockRelay(client), "")

	resp := api.Post("/fill", map[string]any{"prompt": "p", "formData": map[string]any{"a": 1}})

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.JSONEq(t, `{"success":false,"error":"boom"}`, resp.Body.String())
}

func TestFillSurvivesClientCancellation(t *testing.T) {
	client := mock.New().WithResponse(`{"name":"John"}`).WithDelay(20 * time.Millisecond)
	relay := mockRelay(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := relay.Fill(ctx, &models.FillRequestBody{
		Prompt:   "fill form",
		FormData: models.FormData(`{"name":""}`),
	})

	assert.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Body.Values)
	assert.Equal(t, `{"name":"John"}`, *resp.Body.Values)
	assert.Equal(t, 1, client.Calls())
}

func TestFillRelayKey(t *testing.T) {
	client := mock.New()
	api := startTestAPI(t, mockRelay(client), "relay-secret")
	body := map[string]any{"prompt": "fill form", "formData": map[string]any{"name": ""}}

	tt := []struct {
		name         string
		headers      []any
		expectStatus int
	}{
		{name: "No key", headers: nil, expectStatus: http.StatusUnauthorized},
		{name: "Wrong key", headers: []any{"Authorization: Bearer nope"}, expectStatus: http.StatusUnauthorized},
		{name: "Valid key", headers: []any{"Authorization: Bearer relay-secret"}, expectStatus: http.StatusOK},
	}

	for _, v := range tt {
		t.Run(v.name, func(t *testing.T) {
			resp := api.Post("/fill", append(v.headers, body)...)
			assert.Equal(t, v.expectStatus, resp.Code)
		})
	}
	assert.Equal(t, 1, client.Calls())
}

func TestFillPreflight(t *testing.T) {
	api := startTestAPI(t, mockRelay(mock.New()), "relay-secret")

	resp := api.Do(http.MethodOptions, "/fill", "Origin: chrome-extension://abc", "Access-Control-Request-Method: POST")

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestFillCORSHeadersOnResponse(t *testing.T) {
	api := startTestAPI(t, mockRelay(mock.New()), "")

	resp := api.Post("/fill", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestFillIgnoresUnknownProperties(t *testing.T) {
	client := mock.New()
	api := startTestAPI(t, mockRelay(client), "")

	resp := api.Post("/fill", map[string]any{
		"prompt":   "fill form",
		"formData": map[string]any{"name": ""},
		"url":      "https://example.com/signup",
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, client.Calls())
}
