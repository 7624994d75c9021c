package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pantrychef"
	"pantrychef/keystore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `{
  "recipes": [
    {
      "name": "红烧排骨",
      "type": "营养大餐",
      "cooking_time": "45分钟",
      "servings": "4人份",
      "calories": 650,
      "nutrition": {"protein": 35, "carb": 40, "fat": 25},
      "ingredients": [{"name": "排骨", "amount": 500, "unit": "克"}],
      "steps": ["焯水", "炖煮"],
      "expiration_priority": true
    }
  ]
}`

// fakeLLM counts calls and can fail a leading number of them, fail always,
// or block until released.
type fakeLLM struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
	reply    string
	gate     chan struct{}
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if f.gate != nil {
		<-f.gate
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	if n <= f.failures {
		return "", errors.New("connection reset")
	}
	return f.reply, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// captureRunLogger records every run for assertions.
type captureRunLogger struct {
	mu   sync.Mutex
	runs []pantrychef.RunLog
}

func (c *captureRunLogger) LogRun(run pantrychef.RunLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, run)
	return nil
}

func testInputs() ([]pantrychef.IngredientSnapshot, []pantrychef.HistoryEntry) {
	ingredients := []pantrychef.IngredientSnapshot{
		{ID: "meat/排骨", Name: "排骨", Category: "肉类", Quantity: 500, Unit: "克", DaysLeft: 2, HasExpiry: true},
		{ID: "staple/大米", Name: "大米", Category: "主食", Quantity: 2.5, Unit: "千克"},
	}
	history := []pantrychef.HistoryEntry{{Date: "8/28", Meal: "番茄炒蛋"}}
	return ingredients, history
}

func newTestService(t *testing.T, llm *fakeLLM, creds keystore.CredentialStore, runLog pantrychef.RunLogger) *Service {
	t.Helper()
	s, err := NewService(ServiceOpts{
		LLM:         llm,
		Credentials: creds,
		Cache:       NewMemoryCache(10, time.Hour),
		Retry: RetryPolicy{
			MaxAttempts: 3,
			Backoff:     ExponentialBackoff,
			Sleep:       (&recordingSleep{}).sleep,
		},
		RequestTimeout: time.Second,
		RunLogger:      runLog,
	})
	require.NoError(t, err)
	return s
}

func TestNewService_RequiresLLM(t *testing.T) {
	_, err := NewService(ServiceOpts{})
	assert.Error(t, err)
}

func TestService_Recommend(t *testing.T) {
	ctx := context.Background()
	ingredients, history := testInputs()

	llm := &fakeLLM{reply: validResponse}
	runLog := &captureRunLogger{}
	s := newTestService(t, llm, keystore.NewStaticStore("sk-test"), runLog)

	res, err := s.Recommend(ctx, ingredients, history)
	require.NoError(t, err)
	require.Len(t, res.Recipes, 1)
	assert.Equal(t, "红烧排骨", res.Recipes[0].Name)
	assert.False(t, res.CacheHit)
	assert.Equal(t, 1, llm.callCount())

	require.Len(t, runLog.runs, 1)
	assert.Equal(t, 1, runLog.runs[0].Attempts)
	assert.Equal(t, 1, runLog.runs[0].RecipesReturned)
	assert.False(t, runLog.runs[0].CacheHit)
}

func TestService_SecondIdenticalCallHitsCache(t *testing.T) {
	ctx := context.Background()
	ingredients, history := testInputs()

	llm := &fakeLLM{reply: validResponse}
	runLog := &captureRunLogger{}
	s := newTestService(t, llm, keystore.NewStaticStore("sk-test"), runLog)

	first, err := s.Recommend(ctx, ingredients, history)
	require.NoError(t, err)
	second, err := s.Recommend(ctx, ingredients, history)
	require.NoError(t, err)

	assert.Equal(t, 1, llm.callCount(), "cached answer must not hit the network")
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Recipes, second.Recipes)

	require.Len(t, runLog.runs, 2)
	assert.True(t, runLog.runs[1].CacheHit)
}

func TestService_CacheHitSkipsCredentialCheck(t *testing.T) {
	ctx := context.Background()
	ingredients, history := testInputs()

	llm := &fakeLLM{reply: validResponse}
	s := newTestService(t, llm, keystore.NewStaticStore(""), nil)

	// Seed the cache directly; the credential store is empty.
	s.cache.Set(ctx, pantrychef.CacheKey(ingredients, history), validResponse)

	res, err := s.Recommend(ctx, ingredients, history)
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
	assert.Equal(t, 0, llm.callCount())
}

func TestService_MissingCredential(t *testing.T) {
	ctx := context.Background()
	ingredients, history := testInputs()

	llm := &fakeLLM{reply: validResponse}
	s := newTestService(t, llm, keystore.NewStaticStore("  "), nil)

	_, err := s.Recommend(ctx, ingredients, history)
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, 0, llm.callCount(), "no network call without a credential")
}

func TestService_NilCredentialsSkipsCheck(t *testing.T) {
	ctx := context.Background()
	ingredients, history := testInputs()

	llm := &fakeLLM{reply: validResponse}
	s := newTestService(t, llm, nil, nil)

	res, err := s.Recommend(ctx, ingredients, history)
	require.NoError(t, err)
	assert.Len(t, res.Recipes, 1)
}

func TestService_NetworkFailureAfterRetries(t *testing.T) {
	ctx := context.Background()
	ingredients, history := testInputs()

	llm := &fakeLLM{err: errors.New("connection refused")}
	runLog := &captureRunLogger{}
	s := newTestService(t, llm, keystore.NewStaticStore("sk-test"), runLog)

	_, err := s.Recommend(ctx, ingredients, history)
	require.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, 3, llm.callCount(), "every attempt should reach the transport")

	require.Len(t, runLog.runs, 1)
	assert.Equal(t, 3, runLog.runs[0].Attempts)
	assert.NotEmpty(t, runLog.runs[0].Error)
}

func TestService_TransientFailureRecovers(t *testing.T) {
	ctx := context.Background()
	ingredients, history := testInputs()

	llm := &fakeLLM{failures: 2, reply: validResponse}
	s := newTestService(t, llm, keystore.NewStaticStore("sk-test"), nil)

	res, err := s.Recommend(ctx, ingredients, history)
	require.NoError(t, err)
	assert.Len(t, res.Recipes, 1)
	assert.Equal(t, 3, llm.callCount())
}

func TestService_InvalidResponseNotRetried(t *testing.T) {
	ctx := context.Background()
	ingredients, history := testInputs()

	llm := &fakeLLM{reply: "抱歉，我无法生成食谱。"}
	s := newTestService(t, llm, keystore.NewStaticStore("sk-test"), nil)

	_, err := s.Recommend(ctx, ingredients, history)
	require.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 1, llm.callCount(), "a decodable transport success is never retried")
}

func TestService_CancellationSurfacesContextError(t *testing.T) {
	ingredients, history := testInputs()

	llm := &fakeLLM{reply: validResponse}
	s := newTestService(t, llm, keystore.NewStaticStore("sk-test"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Recommend(ctx, ingredients, history)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNetwork, "caller cancellation is not a network failure")
}

func TestService_ConcurrentIdenticalCallsShareOneFlight(t *testing.T) {
	ctx := context.Background()
	ingredients, history := testInputs()

	llm := &fakeLLM{reply: validResponse, gate: make(chan struct{})}
	s := newTestService(t, llm, keystore.NewStaticStore("sk-test"), nil)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Recommend(ctx, ingredients, history)
		}(i)
	}

	// Let both goroutines reach the in-flight request before releasing it.
	require.Eventually(t, func() bool { return llm.callCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(llm.gate)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, llm.callCount(), "identical concurrent requests share one network call")
	assert.Equal(t, results[0].Recipes, results[1].Recipes)
}

func TestService_DroppedRecipesReported(t *testing.T) {
	ctx := context.Background()
	ingredients, history := testInputs()

	reply := `{"recipes": [
		{"name": "", "type": "快手菜"},
		{"name": "番茄炒蛋", "type": "快手菜", "cooking_time": "15分钟", "servings": "2人份",
		 "calories": 320, "nutrition": {"protein": 25, "carb": 45, "fat": 30},
		 "ingredients": [{"name": "鸡蛋", "amount": 3, "unit": "个"}], "steps": ["翻炒"]}
	]}`
	llm := &fakeLLM{reply: reply}
	runLog := &captureRunLogger{}
	s := newTestService(t, llm, keystore.NewStaticStore("sk-test"), runLog)

	res, err := s.Recommend(ctx, ingredients, history)
	require.NoError(t, err)
	assert.Len(t, res.Recipes, 1)
	require.Len(t, res.Dropped, 1)

	require.Len(t, runLog.runs, 1)
	assert.Equal(t, []string{""}, runLog.runs[0].DroppedRecipes)
}
