// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package monitor assembles the CHW monitoring service: storage, auth,
// reports, the REST and GraphQL surfaces, and observability.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ict4d-health/chwmonitor/services/monitor/auth"
	"github.com/ict4d-health/chwmonitor/services/monitor/config"
	"github.com/ict4d-health/chwmonitor/services/monitor/graph"
	"github.com/ict4d-health/chwmonitor/services/monitor/observability"
	"github.com/ict4d-health/chwmonitor/services/monitor/reports"
	"github.com/ict4d-health/chwmonitor/services/monitor/routes"
	"github.com/ict4d-health/chwmonitor/services/monitor/seeder"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

const serviceName = "chwmonitor"

// Service is the assembled monitor server. Create one with New and run it
// with Run; Run blocks until the context is cancelled or the listener fails.
type Service struct {
	cfg           config.MonitorConfig
	store         *store.Store
	auth          *auth.Service
	reports       *reports.Service
	router        *gin.Engine
	metrics       *observability.Metrics
	tracerCleanup func(context.Context)
}

// New builds the service from config. The JWT secret is required; the
// tracer is optional and skipped when no OTLP endpoint is configured.
func New(cfg config.MonitorConfig) (*Service, error) {
	s := &Service{cfg: cfg}

	cleanup, err := initTracer(cfg.Tracing.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("initializing tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	s.metrics = observability.InitMetrics()

	storeCfg := store.DefaultConfig(config.ExpandPath(cfg.Storage.DataDir))
	if cfg.Storage.InMemory {
		storeCfg = store.InMemoryConfig()
	}
	storeCfg.Logger = slog.Default()
	s.store, err = store.Open(storeCfg)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	authCfg := auth.Config{SigningKey: []byte(cfg.Auth.JWTSecret)}
	if cfg.Auth.AccessTokenTTL != "" {
		if authCfg.AccessTTL, err = time.ParseDuration(cfg.Auth.AccessTokenTTL); err != nil {
			s.cleanup()
			return nil, fmt.Errorf("invalid access_token_ttl: %w", err)
		}
	}
	if cfg.Auth.RefreshTokenTTL != "" {
		if authCfg.RefreshTTL, err = time.ParseDuration(cfg.Auth.RefreshTokenTTL); err != nil {
			s.cleanup()
			return nil, fmt.Errorf("invalid refresh_token_ttl: %w", err)
		}
	}
	s.auth, err = auth.NewService(s.store, authCfg)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("initializing auth: %w", err)
	}

	s.reports = reports.NewService(s.store)

	if cfg.Seed.OnStart {
		result, err := seeder.Run(context.Background(), s.store, seeder.Options{
			CHWs:     cfg.Seed.CHWs,
			Patients: cfg.Seed.Patients,
			Visits:   cfg.Seed.Visits,
		})
		switch {
		case errors.Is(err, seeder.ErrNotEmpty):
			slog.Info("store already seeded, skipping")
		case err != nil:
			s.cleanup()
			return nil, fmt.Errorf("seeding store: %w", err)
		default:
			slog.Info("seeded demo data",
				"chws", result.CHWs, "patients", result.Patients, "visits", result.Visits)
		}
	}

	if err := s.initRouter(); err != nil {
		s.cleanup()
		return nil, err
	}
	return s, nil
}

// Store exposes the underlying store, mainly for the seed command.
func (s *Service) Store() *store.Store {
	return s.store
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails. Shutdown drains in-flight requests for up to 10 seconds.
func (s *Service) Run(ctx context.Context) error {
	defer s.cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting monitor server", "port", s.cfg.Server.Port)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down monitor server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// initRouter sets up the Gin engine, middleware, and all routes.
func (s *Service) initRouter() error {
	schema, err := graph.NewSchema(s.store, s.reports)
	if err != nil {
		return fmt.Errorf("building graphql schema: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(s.metrics.Middleware())

	routes.SetupRoutes(router, s.store, s.reports, s.auth, graph.NewHTTPHandler(schema), s.metrics)
	s.router = router
	return nil
}

// cleanup releases the store and tracer.
func (s *Service) cleanup() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("store close error", "error", err)
		}
		s.store = nil
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
}

// initTracer wires the OTLP/gRPC exporter with a batch span processor and
// always-on sampling. An empty endpoint disables tracing (lightweight mode)
// and returns a no-op cleanup.
func initTracer(endpoint string) (func(context.Context), error) {
	if endpoint == "" {
		slog.Info("no OTLP endpoint configured, tracing disabled")
		return func(context.Context) {}, nil
	}
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}
