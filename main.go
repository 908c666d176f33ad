package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mpilhlt/formfill-relay/internal/config"
	"github.com/mpilhlt/formfill-relay/internal/handlers"
	"github.com/mpilhlt/formfill-relay/internal/llm/openai"
	"github.com/mpilhlt/formfill-relay/internal/metrics"
	"github.com/mpilhlt/formfill-relay/internal/models"
	"github.com/mpilhlt/formfill-relay/internal/timestamp"

	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/huma/v2/humacli"
	"go.uber.org/zap"
)

func main() {
	// Create a CLI app
	cli := humacli.New(func(hooks humacli.Hooks, options *models.Options) {

		cfg, err := config.Load(options.EnvFile)
		if err == nil {
			err = cfg.Apply(options)
		}
		if err != nil {
			println("[" + timestamp.Now() + "] invalid configuration: " + err.Error())
			os.Exit(1)
		}

		logger, err := config.NewLogger(cfg.Log)
		if err != nil {
			println("[" + timestamp.Now() + "] unable to build logger: " + err.Error())
			os.Exit(1)
		}

		if cfg.Upstream.APIKey == "" {
			logger.Warn("OPENAI_API_KEY is not set, upstream calls will fail authentication")
		}

		m := metrics.New()
		relay := &handlers.Relay{
			Client: openai.New(openai.Config{
				APIKey:  cfg.Upstream.APIKey,
				BaseURL: cfg.Upstream.BaseURL,
				Timeout: cfg.Upstream.Timeout,
			}, logger.Named("upstream")),
			Model:     cfg.Upstream.Model,
			MaxTokens: cfg.Upstream.MaxTokens,
			Logger:    logger.Named("fill"),
			Metrics:   m,
		}

		// Create a new router & API
		router := http.NewServeMux()
		router.Handle("GET /metrics", m.Handler())
		api := humago.New(router, handlers.NewAPIConfig())

		// Add middleware and routes to the API
		err = handlers.Setup(api, relay, cfg.Auth.RelayKey)
		if err != nil {
			logger.Error("unable to add routes", zap.Error(err))
			os.Exit(1)
		}

		// Create the HTTP server
		server := &http.Server{
			Addr:    cfg.Server.Addr(),
			Handler: router,
		}

		// Start server
		hooks.OnStart(func() {
			logger.Info("server running",
				zap.String("url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)),
				zap.String("model", cfg.Upstream.Model),
				zap.Bool("relayAuth", cfg.Auth.RelayKey != ""),
			)
			err := server.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				logger.Error("listen error", zap.Error(err))
			} else {
				logger.Info("server stopped")
			}
		})

		// Gracefully shutdown server
		hooks.OnStop(func() {
			logger.Info("shutting down server")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				logger.Error("shutdown error", zap.Error(err))
			}
			_ = logger.Sync()
		})
	})

	// Run the CLI. When passed no commands, it starts the server.
	cli.Run()
}
