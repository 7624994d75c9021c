package pantrychef

import "time"

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,default=deepseek-ai/DeepSeek-R1-Distill-Llama-70B"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=1024"`
	Temperature float64 `env:"TEMPERATURE,default=0.6"`
}

type ServiceConfig struct {
	BaseURL                string        `env:"AI_BASE_URL,default=https://api.siliconflow.cn/v1"`
	DefaultAPIKey          string        `env:"AI_API_KEY,default="`
	KeystorePath           string        `env:"KEYSTORE_PATH,default=.pantrychef/credentials.json"`
	RequestTimeout         time.Duration `env:"REQUEST_TIMEOUT,default=30s"`
	MaxRetries             int           `env:"MAX_RETRIES,default=3"`
	CacheSize              int           `env:"CACHE_SIZE,default=100"`
	CacheTTL               time.Duration `env:"CACHE_TTL,default=1h"`
	RedisAddr              string        `env:"REDIS_ADDR,default="`
	ArtifactsInventoryPath string        `env:"ARTIFACTS_INVENTORY_PATH,default=artifacts/inventory.json"`
	ArtifactsHistoryPath   string        `env:"ARTIFACTS_HISTORY_PATH,default=artifacts/history.json"`
	WebhookURL             string        `env:"WEBHOOK_URL,default="`
	WebhookChannel         string        `env:"WEBHOOK_CHANNEL,default=#meals"`
}
