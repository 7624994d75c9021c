// Package openai implements the llm.Client interface against any
// OpenAI-compatible chat-completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"pantrychef"
	"pantrychef/keystore"
)

type Client struct {
	endpoint    string
	model       string
	temperature float64
	creds       keystore.CredentialStore
	httpClient  pantrychef.HTTPClient
}

type ClientOpts struct {
	BaseURL     string
	ModelID     string
	Temperature float64
	Credentials keystore.CredentialStore
	HTTPClient  pantrychef.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if opts.ModelID == "" {
		return nil, fmt.Errorf("model ID is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		endpoint:    strings.TrimSuffix(opts.BaseURL, "/") + "/chat/completions",
		model:       opts.ModelID,
		temperature: opts.Temperature,
		creds:       opts.Credentials,
		httpClient:  httpClient,
	}, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt as a single user-role message and returns the
// first choice's message content verbatim.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "model", c.model, "prompt_bytes", len(prompt))

	apiKey, err := c.creds.APIKey(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve credential: %w", err)
	}

	reqBytes, err := json.Marshal(wireRequest{
		Model:       c.model,
		Messages:    []wireMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LLM_CLIENT: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", fmt.Errorf("LLM_CLIENT: failed to decode completion response: %w", err)
	}
	if len(wr.Choices) == 0 {
		return "", fmt.Errorf("LLM_CLIENT: completion response has no choices")
	}

	content := wr.Choices[0].Message.Content
	slog.Info("LLM_CLIENT: Response received", "content_bytes", len(content))
	return content, nil
}
