package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pantrychef"
	"pantrychef/keystore"
	"pantrychef/llm/openai"
	"pantrychef/notify"
	"pantrychef/recommend"
	"pantrychef/storage"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	var modelConfig pantrychef.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var serviceConfig pantrychef.ServiceConfig
	if err := envdecode.Decode(&serviceConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	inventory := storage.NewFileInventoryState(serviceConfig.ArtifactsInventoryPath)
	history := storage.NewFileHistoryState(serviceConfig.ArtifactsHistoryPath)

	invData, err := inventory.Load(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to load inventory", "error", err)
		return
	}
	items, err := pantrychef.DecodeInventory(invData)
	if err != nil {
		slog.Error("SETUP: Failed to decode inventory", "error", err)
		return
	}

	histData, err := history.Load(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to load history", "error", err)
		return
	}
	meals, err := pantrychef.DecodeHistory(histData)
	if err != nil {
		slog.Error("SETUP: Failed to decode history", "error", err)
		return
	}

	now := time.Now()
	ingredients := pantrychef.BuildSnapshots(items, now)
	entries := pantrychef.BuildHistory(meals, now)
	slog.Info("SETUP: Artifacts loaded", "ingredients", len(ingredients), "meals", len(entries))

	creds := keystore.NewFileStore(serviceConfig.KeystorePath, serviceConfig.DefaultAPIKey)

	llmClient, err := openai.NewClient(openai.ClientOpts{
		BaseURL:     serviceConfig.BaseURL,
		ModelID:     modelConfig.ModelID,
		Temperature: modelConfig.Temperature,
		Credentials: creds,
		HTTPClient:  http.DefaultClient,
	})
	if err != nil {
		slog.Error("SETUP: Failed to create LLM client", "error", err)
		return
	}

	runLogger, cleanup, err := newRunLogger(modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create run logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush run log", "error", err)
		}
	}()

	tracerProvider, meterProvider, otelShutdown, err := pantrychef.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	tracer := tracerProvider.Tracer(pantrychef.TracerNameRecommender)
	meter := meterProvider.Meter(pantrychef.TracerNameRecommender)

	ctx, span := tracer.Start(ctx, pantrychef.TracerNameRecommender, trace.WithAttributes(
		attribute.String("model.id", modelConfig.ModelID),
		attribute.Int("model.max_tokens", int(modelConfig.MaxTokens)),
		attribute.Float64("model.temperature", modelConfig.Temperature),
	))
	defer span.End()

	service, err := recommend.NewService(recommend.ServiceOpts{
		LLM:            llmClient,
		Credentials:    creds,
		Cache:          newCache(serviceConfig),
		RequestTimeout: serviceConfig.RequestTimeout,
		Retry: recommend.RetryPolicy{
			MaxAttempts: serviceConfig.MaxRetries,
			Backoff:     recommend.ExponentialBackoff,
			Sleep:       recommend.ContextSleep,
		},
		RunLogger: runLogger,
	})
	if err != nil {
		slog.Error("SETUP: Failed to create recommendation service", "error", err)
		return
	}

	res, err := recommend.NewInstrumentedService(service, tracer, meter).Recommend(ctx, ingredients, entries)
	if err != nil {
		slog.Error("FAILURE: Error requesting recommendation", "error", err)
		return
	}

	out, err := json.MarshalIndent(res.Recipes, "", "  ")
	if err != nil {
		slog.Error("FAILURE: Error encoding recipes", "error", err)
		return
	}
	fmt.Println(string(out))

	if serviceConfig.WebhookURL != "" {
		notifier := notify.NewClient(serviceConfig.WebhookURL, http.DefaultClient)
		if err := notifier.PostSummary(ctx, serviceConfig.WebhookChannel, res.Recipes); err != nil {
			slog.Error("Failed to post recommendation summary", "error", err)
		}
	}
}

func newCache(cfg pantrychef.ServiceConfig) recommend.Cache {
	if cfg.RedisAddr != "" {
		slog.Info("SETUP: Using Redis response cache", "addr", cfg.RedisAddr)
		return recommend.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.CacheTTL)
	}
	return recommend.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
}

func newRunLogger(modelID string) (pantrychef.RunLogger, func() error, error) {
	logFilePath := pantrychef.NewRunLogFilePath(modelID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := pantrychef.NewFileRunLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
