package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"erythu/portal/internal/api"
	"erythu/portal/internal/config"
	"erythu/portal/internal/lifecycle"
	"erythu/portal/internal/persistence"
	"erythu/portal/internal/telemetry"
)

// AppContext holds all constructed application dependencies shared across
// subcommands. It is built once in PersistentPreRunE.
type AppContext struct {
	cfg          *config.Config
	otelProvider *telemetry.Provider
	runner       *lifecycle.Runner
	router       *api.Router
}

// buildAppContext constructs all application dependencies from cfg:
//  1. Initialises the OTEL provider (best-effort, non-fatal)
//  2. Resolves the persistence unit and its circuit breaker
//  3. Creates the lifecycle runner
//  4. Creates the HTTP router
func buildAppContext(cfg *config.Config, unitName string) (*AppContext, error) {
	app := &AppContext{cfg: cfg}

	// A missing collector must never block startup; an empty endpoint
	// disables telemetry entirely.
	if cfg.Telemetry.OTLPEndpoint == "" {
		slog.Info("OTEL telemetry disabled (no endpoint configured)")
	} else {
		tp, err := telemetry.InitProvider(
			context.Background(),
			cfg.Telemetry.OTLPEndpoint,
			cfg.Telemetry.ServiceName,
			cfg.Telemetry.OTLPInsecure,
		)
		if err != nil {
			slog.Warn("OTEL provider init failed — telemetry disabled", "err", err)
		} else {
			app.otelProvider = tp
		}
	}

	unit, err := persistence.NewUnit(cfg.Persistence, unitName, persistence.NewCircuitBreaker("persistence"))
	if err != nil {
		return nil, err
	}

	app.runner = lifecycle.New(unit, map[string]lifecycle.Prober{"postgres": unit})
	app.router, err = api.NewRouter(app.runner, cfg.Server.BasePath, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("building router: %w", err)
	}

	return app, nil
}

// shutdownTelemetry flushes the OTEL provider, if one was started.
func (a *AppContext) shutdownTelemetry() {
	if a.otelProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.otelProvider.Shutdown(ctx); err != nil {
		slog.Warn("OTEL shutdown error", "err", err)
	}
}
