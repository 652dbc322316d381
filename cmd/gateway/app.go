package main

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/avaxform/internal/config"
	httpserver "github.com/vyrodovalexey/avaxform/internal/gateway/server/http"
	"github.com/vyrodovalexey/avaxform/internal/observability"
	"github.com/vyrodovalexey/avaxform/internal/pipeline"
	"github.com/vyrodovalexey/avaxform/internal/schema"
)

// application holds all application components.
type application struct {
	config       *config.Config
	server       *httpserver.Server
	orchestrator *pipeline.Orchestrator
	rules        *config.RuleWatcher
	registry     *observability.Registry
	tracer       *observability.Tracer
}

// initApplication wires the schema resolver, the orchestrator, the rule
// watcher and the HTTP server.
func initApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	registry := newMetricsRegistry()
	registry.SetBuildInfo(version, gitCommit, buildTime)

	tracer, err := initTracer(cfg, logger)
	if err != nil {
		return nil, err
	}

	fetcher := schema.NewCachedFetcher(
		schema.NewHTTPFetcherFromConfig(cfg.SchemaRegistry, logger),
		logger,
		cfg.SchemaRegistry.Timeout.OrDefault(config.DefaultFetchTimeout),
	)
	orchestrator, err := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithSchemaResolver(schema.NewResolver(fetcher, schema.WithResolverLogger(logger))),
		pipeline.WithSourceGetter(pipeline.NewSourceGetterFromConfig(cfg.Source, logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	app := &application{
		config:       cfg,
		orchestrator: orchestrator,
		registry:     registry,
		tracer:       tracer,
	}

	handlerOpts := []httpserver.HandlerOption{httpserver.WithHandlerLogger(logger)}
	if cfg.Metrics.Enabled {
		handlerOpts = append(handlerOpts, httpserver.WithMetricsHandler(cfg.Metrics.Path, registry.Handler()))
	}
	if cfg.Rules.Path != "" {
		watcher, err := config.NewRuleWatcher(cfg.Rules.Path,
			config.WithLogger(logger),
			config.WithDebounceDelay(cfg.Rules.DebounceDelay.Duration()),
			config.WithRuleSetCallback(func(set *config.RuleSet) {
				logger.Info("rule set reloaded", observability.Int("rules", len(set.Rules)))
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		app.rules = watcher
		handlerOpts = append(handlerOpts, httpserver.WithRules(watcher))
		logger.Info("rule set loaded", observability.Int("rules", len(watcher.Rules().Rules)))
	}

	app.server = httpserver.NewServer(httpserver.ServerConfigFrom(cfg.Server), logger)
	httpserver.NewHandler(orchestrator, handlerOpts...).Register(app.server.Engine())

	return app, nil
}

// initTracer builds the tracer from the tracing configuration.
func initTracer(cfg *config.Config, logger observability.Logger) (*observability.Tracer, error) {
	tracerCfg := observability.TracerConfig{
		ServiceName:  "avaxform",
		Enabled:      cfg.Tracing.Enabled,
		SamplingRate: cfg.Tracing.SamplingRate,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
	}
	if cfg.Tracing.ServiceName != "" {
		tracerCfg.ServiceName = cfg.Tracing.ServiceName
	}

	tracer, err := observability.NewTracer(context.Background(), tracerCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}
	if tracerCfg.Enabled {
		logger.Info("tracing enabled",
			observability.String("service", tracerCfg.ServiceName),
			observability.String("endpoint", tracerCfg.OTLPEndpoint),
		)
	}
	return tracer, nil
}
