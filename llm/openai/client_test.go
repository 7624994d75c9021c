package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"pantrychef/keystore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient implements the HTTPClient interface for testing
type mockHTTPClient struct {
	response *http.Response
	err      error
	lastReq  *http.Request
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	return m.response, m.err
}

// createMockResponse creates a mock HTTP response
func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		opts    ClientOpts
		wantErr bool
	}{
		{
			name: "valid client creation",
			opts: ClientOpts{
				BaseURL:     "https://api.siliconflow.cn/v1",
				ModelID:     "deepseek-ai/DeepSeek-R1-Distill-Llama-70B",
				Temperature: 0.6,
				Credentials: keystore.NewStaticStore("sk-test"),
				HTTPClient:  &mockHTTPClient{},
			},
		},
		{
			name: "missing base URL",
			opts: ClientOpts{
				ModelID:     "deepseek-ai/DeepSeek-R1-Distill-Llama-70B",
				Credentials: keystore.NewStaticStore("sk-test"),
			},
			wantErr: true,
		},
		{
			name: "missing model ID",
			opts: ClientOpts{
				BaseURL:     "https://api.siliconflow.cn/v1",
				Credentials: keystore.NewStaticStore("sk-test"),
			},
			wantErr: true,
		},
		{
			name: "missing credential store",
			opts: ClientOpts{
				BaseURL: "https://api.siliconflow.cn/v1",
				ModelID: "deepseek-ai/DeepSeek-R1-Distill-Llama-70B",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewClient(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://api.siliconflow.cn/v1/chat/completions", got.endpoint)
		})
	}
}

func TestClient_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("returns first choice content", func(t *testing.T) {
		mock := &mockHTTPClient{
			response: createMockResponse(http.StatusOK, `{"choices":[{"message":{"content":"{\"recipes\":[]}"}}]}`),
		}
		c, err := NewClient(ClientOpts{
			BaseURL:     "https://api.siliconflow.cn/v1",
			ModelID:     "deepseek-ai/DeepSeek-R1-Distill-Llama-70B",
			Temperature: 0.6,
			Credentials: keystore.NewStaticStore("sk-test"),
			HTTPClient:  mock,
		})
		require.NoError(t, err)

		content, err := c.Complete(ctx, "生成食谱")
		require.NoError(t, err)
		assert.Equal(t, `{"recipes":[]}`, content)

		// Request shape: single user message, bearer auth, configured model.
		require.NotNil(t, mock.lastReq)
		assert.Equal(t, http.MethodPost, mock.lastReq.Method)
		assert.Equal(t, "https://api.siliconflow.cn/v1/chat/completions", mock.lastReq.URL.String())
		assert.Equal(t, "Bearer sk-test", mock.lastReq.Header.Get("Authorization"))
		assert.Equal(t, "application/json", mock.lastReq.Header.Get("Content-Type"))

		body, err := io.ReadAll(mock.lastReq.Body)
		require.NoError(t, err)
		var sent wireRequest
		require.NoError(t, json.Unmarshal(body, &sent))
		assert.Equal(t, "deepseek-ai/DeepSeek-R1-Distill-Llama-70B", sent.Model)
		assert.Equal(t, 0.6, sent.Temperature)
		require.Len(t, sent.Messages, 1)
		assert.Equal(t, "user", sent.Messages[0].Role)
		assert.Equal(t, "生成食谱", sent.Messages[0].Content)
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		mock := &mockHTTPClient{
			response: createMockResponse(http.StatusUnauthorized, `{"error":"invalid key"}`),
		}
		c, err := NewClient(ClientOpts{
			BaseURL:     "https://api.siliconflow.cn/v1",
			ModelID:     "deepseek-ai/DeepSeek-R1-Distill-Llama-70B",
			Credentials: keystore.NewStaticStore("sk-test"),
			HTTPClient:  mock,
		})
		require.NoError(t, err)

		_, err = c.Complete(ctx, "生成食谱")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid key")
	})

	t.Run("empty choices is an error", func(t *testing.T) {
		mock := &mockHTTPClient{
			response: createMockResponse(http.StatusOK, `{"choices":[]}`),
		}
		c, err := NewClient(ClientOpts{
			BaseURL:     "https://api.siliconflow.cn/v1",
			ModelID:     "deepseek-ai/DeepSeek-R1-Distill-Llama-70B",
			Credentials: keystore.NewStaticStore("sk-test"),
			HTTPClient:  mock,
		})
		require.NoError(t, err)

		_, err = c.Complete(ctx, "生成食谱")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no choices")
	})
}
