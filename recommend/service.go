// Package recommend owns the recommendation pipeline: cache lookup,
// credential check, the retried network call, and response parsing.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pantrychef"
	"pantrychef/keystore"
	"pantrychef/llm"
	"pantrychef/parse"
	"pantrychef/prompt"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrMissingCredential means no usable API key is available. Never retried.
	ErrMissingCredential = errors.New("no API credential configured")
	// ErrNetwork wraps the last transport or non-200 failure once retries
	// are exhausted.
	ErrNetwork = errors.New("recommendation request failed after retries")
	// ErrInvalidResponse means the call succeeded but no usable recipe list
	// could be recovered. Retrying would not help, so it never is.
	ErrInvalidResponse = errors.New("model response could not be decoded")
)

// DefaultRequestTimeout bounds each individual network attempt.
const DefaultRequestTimeout = 30 * time.Second

// Result is one completed recommendation: the recipes, what the parser
// dropped, and whether the answer came from cache.
type Result struct {
	Recipes  []pantrychef.Recipe
	Dropped  []parse.Dropped
	CacheHit bool
}

// Service coordinates one recommendation request start to finish. With the
// default policy a fully failing call is bounded by three 30s attempts plus
// 2s+4s of backoff, roughly 104 seconds worst case.
type Service struct {
	llm     llm.Client
	creds   keystore.CredentialStore
	cache   Cache
	retry   RetryPolicy
	timeout time.Duration
	runLog  pantrychef.RunLogger
	group   singleflight.Group
}

// ServiceOpts configures a Service. LLM is required; Credentials may be nil
// when the transport manages its own auth (Bedrock); everything else
// defaults sensibly.
type ServiceOpts struct {
	LLM            llm.Client
	Credentials    keystore.CredentialStore
	Cache          Cache
	Retry          RetryPolicy
	RequestTimeout time.Duration
	RunLogger      pantrychef.RunLogger
}

func NewService(opts ServiceOpts) (*Service, error) {
	if opts.LLM == nil {
		return nil, fmt.Errorf("LLM client is required")
	}
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache(DefaultCacheSize, DefaultCacheTTL)
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Retry.Sleep == nil {
		opts.Retry.Sleep = ContextSleep
	}
	if opts.Retry.Backoff == nil {
		opts.Retry.Backoff = ExponentialBackoff
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.RunLogger == nil {
		opts.RunLogger = pantrychef.NewNoOpRunLogger()
	}

	return &Service{
		llm:     opts.LLM,
		creds:   opts.Credentials,
		cache:   opts.Cache,
		retry:   opts.Retry,
		timeout: opts.RequestTimeout,
		runLog:  opts.RunLogger,
	}, nil
}

type flightResult struct {
	raw      string
	attempts int
}

// Recommend turns the current inventory snapshot and meal history into a
// recipe list. Cache hits skip the credential check, the network call, and
// the retry loop entirely. Concurrent calls for the same cache key share a
// single in-flight network request. Caller cancellation surfaces ctx.Err()
// untouched, distinct from ErrNetwork.
func (s *Service) Recommend(ctx context.Context, ingredients []pantrychef.IngredientSnapshot, history []pantrychef.HistoryEntry) (Result, error) {
	key := pantrychef.CacheKey(ingredients, history)
	run := pantrychef.RunLog{Timestamp: time.Now(), CacheKey: key}

	if raw, ok := s.cache.Get(ctx, key); ok {
		slog.Info("RECOMMENDER: Cache hit", "response_bytes", len(raw))
		run.CacheHit = true
		run.ResponseBytes = len(raw)
		res, err := parse.Parse(raw)
		if err != nil {
			run.Error = err.Error()
			s.logRun(run)
			return Result{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
		run.RecipesReturned = len(res.Recipes)
		run.DroppedRecipes = droppedNames(res.Dropped)
		s.logRun(run)
		return Result{Recipes: res.Recipes, Dropped: res.Dropped, CacheHit: true}, nil
	}

	if s.creds != nil {
		apiKey, err := s.creds.APIKey(ctx)
		if err != nil {
			run.Error = err.Error()
			s.logRun(run)
			return Result{}, fmt.Errorf("%w: %w", ErrMissingCredential, err)
		}
		if strings.TrimSpace(apiKey) == "" {
			run.Error = ErrMissingCredential.Error()
			s.logRun(run)
			return Result{}, ErrMissingCredential
		}
	}

	p := prompt.Compose(ingredients, history)
	run.PromptBytes = len(p)
	slog.Info("RECOMMENDER: Cache miss, calling model",
		"prompt_bytes", len(p),
		"ingredients", len(ingredients),
		"history", len(history),
	)

	v, err, shared := s.group.Do(key, func() (any, error) {
		var content string
		attempts, err := s.retry.Do(ctx, func(ctx context.Context) error {
			attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			out, cerr := s.llm.Complete(attemptCtx, p)
			if cerr != nil {
				return cerr
			}
			content = out
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return flightResult{attempts: attempts}, ctx.Err()
			}
			return flightResult{attempts: attempts}, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		s.cache.Set(ctx, key, content)
		return flightResult{raw: content, attempts: attempts}, nil
	})
	fr, _ := v.(flightResult)
	run.Attempts = fr.attempts
	if shared {
		slog.Info("RECOMMENDER: Joined in-flight request for identical inventory")
	}
	if err != nil {
		run.Error = err.Error()
		s.logRun(run)
		return Result{}, err
	}

	run.ResponseBytes = len(fr.raw)
	res, err := parse.Parse(fr.raw)
	if err != nil {
		run.Error = err.Error()
		s.logRun(run)
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	slog.Info("RECOMMENDER: Run complete",
		"attempts", fr.attempts,
		"recipes", len(res.Recipes),
		"dropped", len(res.Dropped),
	)
	run.RecipesReturned = len(res.Recipes)
	run.DroppedRecipes = droppedNames(res.Dropped)
	s.logRun(run)
	return Result{Recipes: res.Recipes, Dropped: res.Dropped}, nil
}

func droppedNames(dropped []parse.Dropped) []string {
	if len(dropped) == 0 {
		return nil
	}
	names := make([]string, 0, len(dropped))
	for _, d := range dropped {
		names = append(names, d.Name)
	}
	return names
}

// logRun logs a run using the configured logger, handling errors gracefully.
func (s *Service) logRun(run pantrychef.RunLog) {
	if s.runLog != nil {
		if err := s.runLog.LogRun(run); err != nil {
			slog.Error("Failed to log recommendation run", "error", err)
		}
	}
}
