package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mpilhlt/formfill-relay/internal/auth"
	"github.com/mpilhlt/formfill-relay/internal/llm"
	"github.com/mpilhlt/formfill-relay/internal/metrics"

	huma "github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

type contextKey string

// Context keys
const (
	RelayKey = contextKey("relay")
)

// Error responses
var (
	ErrRelayNotFound = errors.New("relay not found in context")
)

// Relay holds everything the fill operation needs. It is built once at
// startup and never modified afterwards.
type Relay struct {
	Client    llm.Client
	Model     string
	MaxTokens int
	Logger    *zap.Logger
	Metrics   *metrics.Metrics // optional
}

// NewAPIConfig returns the huma configuration shared by the server and
// the tests. Response bodies carry no $schema link so they match the
// documented shape exactly.
func NewAPIConfig() huma.Config {
	config := huma.DefaultConfig("Form-Fill Relay API", "0.1.0")
	config.CreateHooks = nil
	config.Transformers = nil
	config.Components.SecuritySchemes = auth.Config
	return config
}

// Setup adds middleware and routes to api. An empty relayKey leaves the
// fill operation open.
func Setup(api huma.API, relay *Relay, relayKey string) error {
	if relay == nil || relay.Client == nil {
		return fmt.Errorf("relay and its client must not be nil")
	}
	if relay.Logger == nil {
		relay.Logger = zap.NewNop()
	}
	api.UseMiddleware(auth.CORSMiddleware(api))
	api.UseMiddleware(auth.RelayKeyAuth(api, relayKey))
	api.UseMiddleware(auth.AuthTermination(api, relay.Logger))
	return AddRoutes(relay, api)
}

// AddRoutes adds all the routes to the API
func AddRoutes(relay *Relay, api huma.API) error {
	err := RegisterFillRoutes(relay, api)
	if err != nil {
		relay.Logger.Error("unable to register fill routes", zap.Error(err))
		return err
	}
	return nil
}

// Middleware to add the relay to the context
func addRelayToContext[I any, O any](relay *Relay, next func(context.Context, *I) (*O, error)) func(context.Context, *I) (*O, error) {
	return func(ctx context.Context, input *I) (*O, error) {
		if relay == nil {
			return nil, fmt.Errorf("provided relay is nil")
		}
		ctx = context.WithValue(ctx, RelayKey, relay)
		return next(ctx, input)
	}
}

// Get the relay from the context
// (exported helper function so that blackbox testing can access it)
func GetRelay(ctx context.Context) (*Relay, error) {
	relay, ok := ctx.Value(RelayKey).(*Relay)
	if !ok {
		return nil, huma.NewError(http.StatusInternalServerError, ErrRelayNotFound.Error())
	}
	return relay, nil
}
