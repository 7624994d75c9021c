package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"pantrychef"
	"pantrychef/llm/bedrock"
	"pantrychef/recommend"
	"pantrychef/storage"
)

type Params struct {
	// Kept for invocation-payload compatibility; the snapshot comes from S3.
	RequestID string `json:"request_id"`
}

type Results struct {
	Recipes []pantrychef.Recipe `json:"recipes"`
	Dropped []any               `json:"dropped,omitempty"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
		var modelConfig pantrychef.ModelConfig
		if err := envdecode.Decode(&modelConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		var serviceConfig pantrychef.ServiceConfig
		if err := envdecode.Decode(&serviceConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		// S3 config from env
		s3Bucket := os.Getenv("ARTIFACTS_S3_BUCKET")
		inventoryKey := os.Getenv("ARTIFACTS_INVENTORY_S3_KEY")
		historyKey := os.Getenv("ARTIFACTS_HISTORY_S3_KEY")
		if s3Bucket == "" || inventoryKey == "" || historyKey == "" {
			return Results{}, fmt.Errorf("missing S3 config: ARTIFACTS_S3_BUCKET, ARTIFACTS_INVENTORY_S3_KEY, ARTIFACTS_HISTORY_S3_KEY must be set")
		}

		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return Results{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s3Client := s3.NewFromConfig(awsCfg)

		inventory := storage.NewS3InventoryState(s3Client, s3Bucket, inventoryKey)
		history := storage.NewS3HistoryState(s3Client, s3Bucket, historyKey)

		invData, err := inventory.Load(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to load inventory from S3", "error", err)
			return Results{}, err
		}
		items, err := pantrychef.DecodeInventory(invData)
		if err != nil {
			slog.Error("SETUP: Failed to decode inventory", "error", err)
			return Results{}, err
		}

		histData, err := history.Load(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to load history from S3", "error", err)
			return Results{}, err
		}
		meals, err := pantrychef.DecodeHistory(histData)
		if err != nil {
			slog.Error("SETUP: Failed to decode history", "error", err)
			return Results{}, err
		}

		now := time.Now()
		ingredients := pantrychef.BuildSnapshots(items, now)
		entries := pantrychef.BuildHistory(meals, now)
		slog.Info("SETUP: S3 inventory and history state initialized",
			"ingredients_count", len(ingredients),
			"meals_count", len(entries),
		)

		brc, err := newBedrockRuntimeClient(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to create Bedrock client", "error", err)
			return Results{}, err
		}

		// BEDROCK_MODEL_ID overrides the client default; MODEL_ID names the
		// OpenAI-compatible model and does not apply here.
		llm := bedrock.NewClient(brc, bedrock.ClientOpts{
			ModelID:     os.Getenv("BEDROCK_MODEL_ID"),
			MaxTokens:   modelConfig.MaxTokens,
			Temperature: float32(modelConfig.Temperature),
		})

		service, err := recommend.NewService(recommend.ServiceOpts{
			LLM:            llm,
			Cache:          recommend.NewMemoryCache(serviceConfig.CacheSize, serviceConfig.CacheTTL),
			RequestTimeout: serviceConfig.RequestTimeout,
			Retry: recommend.RetryPolicy{
				MaxAttempts: serviceConfig.MaxRetries,
				Backoff:     recommend.ExponentialBackoff,
				Sleep:       recommend.ContextSleep,
			},
			RunLogger: pantrychef.NewStdoutRunLogger(),
		})
		if err != nil {
			slog.Error("SETUP: Failed to create recommendation service", "error", err)
			return Results{}, err
		}

		res, err := service.Recommend(ctx, ingredients, entries)
		if err != nil {
			slog.Error("RESULT: Error requesting recommendation", "error", err)
			return Results{}, err
		}

		dropped := make([]any, 0, len(res.Dropped))
		for _, d := range res.Dropped {
			dropped = append(dropped, d)
		}
		return Results{Recipes: res.Recipes, Dropped: dropped}, nil
	}

	lambda.Start(fn)
}

func newBedrockRuntimeClient(ctx context.Context) (*bedrockruntime.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}
