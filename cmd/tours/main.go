// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/AleutianAI/AleutianTours/pkg/extensions"
	"github.com/AleutianAI/AleutianTours/pkg/logging"
	"github.com/AleutianAI/AleutianTours/services/guide/observability"
	"github.com/AleutianAI/AleutianTours/services/guide/routes"
	"github.com/AleutianAI/AleutianTours/services/guide/services"
	"github.com/AleutianAI/AleutianTours/services/guide/storage"
	"github.com/AleutianAI/AleutianTours/services/guide/storage/memory"
	"github.com/AleutianAI/AleutianTours/services/guide/storage/postgres"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "aleutian-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("tours-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// openStore picks the storage backend from TOURS_DATABASE_URL. A
// missing DSN falls back to the in-memory store for local development.
func openStore(ctx context.Context) (storage.Store, error) {
	dsn := os.Getenv("TOURS_DATABASE_URL")
	if dsn == "" {
		slog.Info("TOURS_DATABASE_URL not set. Running with the in-memory store; nothing survives a restart.")
		return memory.New(), nil
	}
	return postgres.New(ctx, postgres.Config{DSN: dsn})
}

func main() {
	port := os.Getenv("TOURS_PORT")
	if port == "" {
		port = "12230"
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slogger)

	logger := logging.New(logging.Config{
		Service: "tours",
		LogDir:  os.Getenv("TOURS_LOG_DIR"),
		JSON:    true,
	})
	defer logger.Close()

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	store, err := openStore(context.Background())
	if err != nil {
		log.Fatalf("FATAL: could not open the store: %v", err)
	}
	defer store.Close()

	metrics := observability.InitMetrics()
	svc := services.New(store, logger)

	// Authentication defaults to the local no-op provider; production
	// deployments swap in a real one through extensions.
	opts := extensions.DefaultOptions().WithDefaults()

	router := gin.Default()
	router.Use(otelgin.Middleware("tours-service"))

	routes.SetupRoutes(router, svc, opts.AuthProvider, metrics)

	log.Println("Starting the tours server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
