// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gaolin1/math-olympic-question-search/pkg/render"
	"github.com/gaolin1/math-olympic-question-search/services/api/handlers"
	"github.com/gaolin1/math-olympic-question-search/services/api/middleware"
	"github.com/gaolin1/math-olympic-question-search/services/api/observability"
	"github.com/gaolin1/math-olympic-question-search/services/api/routes"
	"github.com/gaolin1/math-olympic-question-search/services/api/sessions"
	"github.com/gaolin1/math-olympic-question-search/services/api/store"
	"github.com/gaolin1/math-olympic-question-search/services/llm"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
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
		resource.WithAttributes(semconv.ServiceNameKey.String("mathsearch-api")))
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

func main() {
	port := os.Getenv("MATHSEARCH_PORT")
	if port == "" {
		port = "8000"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	problemsPath := os.Getenv("PROBLEMS_PATH")
	if problemsPath == "" {
		problemsPath = "data/problems.json"
	}
	problems, err := store.Open(problemsPath)
	if err != nil {
		log.Fatalf("Failed to load the problem file: %v", err)
	}
	defer problems.Close()
	if err := problems.Watch(ctx); err != nil {
		// The server still works, it just won't pick up scraper output
		// until restarted.
		slog.Warn("Problem file watching disabled", "error", err)
	}

	sessionsPath := os.Getenv("SESSIONS_PATH")
	if sessionsPath == "" {
		sessionsPath = "data/sessions"
	}
	hintSessions, err := sessions.Open(sessionsPath)
	if err != nil {
		log.Fatalf("Failed to open the session store: %v", err)
	}
	defer hintSessions.Close()

	log.Println("Configuring the LLM Client")
	var llmClient llm.LLMClient
	var backend handlers.BackendInfo

	switch os.Getenv("LLM_BACKEND_TYPE") {
	case "openai":
		client, err := llm.NewOpenAIClient()
		if err != nil {
			log.Fatalf("Failed to initialize LLM client: %v", err)
		}
		llmClient = client
		backend = handlers.BackendInfo{Backend: "openai", URL: "https://api.openai.com/v1", Model: client.Model()}
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		client := llm.NewOllamaClient()
		llmClient = client
		backend = handlers.BackendInfo{Backend: "ollama", URL: client.BaseURL(), Model: client.Model()}
		slog.Info("Using Ollama LLM backend")
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to ollama")
		client := llm.NewOllamaClient()
		llmClient = client
		backend = handlers.BackendInfo{Backend: "ollama", URL: client.BaseURL(), Model: client.Model()}
	}

	observability.InitMetrics(problems.Len)
	renderer := render.New(render.EngineFromEnv())

	origins := middleware.DefaultOrigins()
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RequestMetrics())
	router.Use(otelgin.Middleware("mathsearch-api"))
	router.Use(middleware.CORS(origins))

	routes.SetupRoutes(router, problems, hintSessions, llmClient, renderer, backend)

	srv := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		slog.Info("Starting the problem search API", "port", port, "problems_loaded", problems.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
