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

	"pantrychef"
	"pantrychef/keystore"
	"pantrychef/llm/openai"
	"pantrychef/recommend"
	"pantrychef/storage"
)

func main() {
	ctx := context.Background()

	// Optional .env for local runs; env vars win.
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

	now := time.Now()
	ingredients, meals, err := loadArtifacts(ctx, inventory, history, now)
	if err != nil {
		slog.Error("SETUP: Failed to load artifacts", "error", err)
		return
	}
	slog.Info("SETUP: Artifacts loaded", "ingredients", len(ingredients), "meals", len(meals))

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

	res, err := service.Recommend(ctx, ingredients, meals)
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
}

func loadArtifacts(ctx context.Context, inv storage.InventoryState, hist storage.HistoryState, now time.Time) ([]pantrychef.IngredientSnapshot, []pantrychef.HistoryEntry, error) {
	invData, err := inv.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	items, err := pantrychef.DecodeInventory(invData)
	if err != nil {
		return nil, nil, err
	}

	histData, err := hist.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}
	meals, err := pantrychef.DecodeHistory(histData)
	if err != nil {
		return nil, nil, err
	}

	return pantrychef.BuildSnapshots(items, now), pantrychef.BuildHistory(meals, now), nil
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
