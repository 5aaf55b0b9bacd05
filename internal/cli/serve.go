package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/turnstile/pkg/adapters/http"
	"github.com/aretw0/turnstile/pkg/observability"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP server.
const ShutdownTimeout = 5 * time.Second

// NewHTTPHandler builds the HTTP transport for the app.
func NewHTTPHandler(app *App) http.Handler {
	opts := []httpadapter.Option{
		httpadapter.WithLogger(app.Logger),
		httpadapter.WithAuthToken(app.Config.Server.AuthToken),
	}
	if len(app.Config.Server.CORSOrigins) > 0 {
		opts = append(opts, httpadapter.WithCORSOrigins(app.Config.Server.CORSOrigins...))
	}
	if app.Metrics != nil {
		opts = append(opts, httpadapter.WithMetricsHandler(app.Metrics.Handler()))
	}
	return httpadapter.NewHandler(app.Engine, opts...)
}

// Serve runs the HTTP transport until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, app *App) error {
	shutdownTracing, err := observability.SetupTracing(ctx, app.Config.Telemetry.OTLPEndpoint, app.Config.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			app.Logger.Warn("tracing shutdown failed", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              app.Config.Server.Addr,
		Handler:           NewHTTPHandler(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("turnstile server listening",
			"addr", srv.Addr,
			"root_dialog", app.Engine.RootDialog(),
			"store", app.Config.Store.Driver,
			"metrics", app.Metrics != nil,
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		app.Logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, err)
		}
		app.Logger.Info("server stopped gracefully")
		return nil
	}
}
