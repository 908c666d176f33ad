package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mpilhlt/formfill-relay/internal/auth"
	"github.com/mpilhlt/formfill-relay/internal/llm"
	"github.com/mpilhlt/formfill-relay/internal/metrics"
	"github.com/mpilhlt/formfill-relay/internal/models"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

// Fill validates body, asks the upstream model to fill the form and
// shapes the outcome into a response. It never returns nil.
//
// The upstream call runs on a context detached from ctx's cancellation:
// a client that hangs up does not abort a call already in flight.
func (r *Relay) Fill(ctx context.Context, body *models.FillRequestBody) *models.FillResponse {
	start := time.Now()
	if r.Metrics != nil {
		r.Metrics.IncRequestsInFlight()
		defer r.Metrics.DecRequestsInFlight()
	}
	record := func(outcome string) {
		if r.Metrics != nil {
			r.Metrics.RecordFillRequest(outcome, time.Since(start))
		}
	}

	r.Logger.Info("request received",
		zap.String("prompt", body.Prompt),
		zap.ByteString("formData", body.FormData),
	)

	if body.Prompt == "" || !body.FormData.Present() {
		r.Logger.Info("invalid request: prompt or formData missing")
		record(metrics.OutcomeMissingField)
		return models.FillFailed(http.StatusBadRequest, models.MissingFieldMessage)
	}

	formData, err := body.FormData.Compact()
	if err != nil {
		r.Logger.Error("error", zap.Error(err))
		record(metrics.OutcomeTransport)
		return models.FillFailed(http.StatusInternalServerError, err.Error())
	}

	req := llm.NewFillRequest(r.Model, formData, r.MaxTokens)

	callStart := time.Now()
	completion, err := r.Client.Complete(context.WithoutCancel(ctx), req)
	if err != nil {
		var upstreamErr *llm.UpstreamError
		if errors.As(err, &upstreamErr) {
			r.recordUpstream(metrics.OutcomeUpstream, callStart)
			record(metrics.OutcomeUpstream)
			return models.FillFailed(http.StatusInternalServerError, upstreamErr.Body)
		}
		r.Logger.Error("error", zap.Error(err))
		r.recordUpstream(metrics.OutcomeTransport, callStart)
		record(metrics.OutcomeTransport)
		return models.FillFailed(http.StatusInternalServerError, err.Error())
	}
	r.recordUpstream(metrics.OutcomeSuccess, callStart)

	r.Logger.Info("sending response")
	r.Logger.Info("final value", zap.String("values", completion.Content))
	record(metrics.OutcomeSuccess)
	return models.FillSucceeded(completion.Content)
}

func (r *Relay) recordUpstream(outcome string, start time.Time) {
	if r.Metrics != nil {
		r.Metrics.RecordUpstreamRequest(outcome, time.Since(start))
	}
}

// Define handler functions for each route
func postFillFunc(ctx context.Context, input *models.FillRequest) (*models.FillResponse, error) {
	relay, err := GetRelay(ctx)
	if err != nil {
		return nil, err
	}
	body := input.Body
	if body == nil {
		body = &models.FillRequestBody{}
	}
	return relay.Fill(ctx, body), nil
}

// Preflight requests are answered by auth.CORSMiddleware.
func optionsFillFunc(ctx context.Context, input *struct{}) (*struct{}, error) {
	return nil, nil
}

// RegisterFillRoutes registers the routes for the fill service
func RegisterFillRoutes(relay *Relay, api huma.API) error {
	// Define huma.Operations for each route
	postFillOp := huma.Operation{
		OperationID:   "postFill",
		Method:        http.MethodPost,
		Path:          "/fill",
		DefaultStatus: http.StatusOK,
		Summary:       "Fill a form with values suggested by the language model",
		Description:   "Returns {success:true, values} on success. A missing prompt or formData yields 400, upstream and transport failures yield 500, all with {success:false, error}.",
		Security:      auth.Security,
		Errors:        []int{http.StatusUnauthorized},
		Tags:          []string{"fill"},
	}
	optionsFillOp := huma.Operation{
		OperationID: "optionsFill",
		Method:      http.MethodOptions,
		Path:        "/fill",
		Summary:     "CORS preflight for /fill",
		Hidden:      true,
		Tags:        []string{"fill"},
	}

	huma.Register(api, postFillOp, addRelayToContext(relay, postFillFunc))
	huma.Register(api, optionsFillOp, optionsFillFunc)
	return nil
}
