// Package bedrock implements the llm.Client interface against AWS Bedrock's
// Converse API. Auth is handled by the AWS SDK credential chain, so no
// credential store is involved here.
package bedrock

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// 1k tokens is enough for six recipes; raise when expecting longer answers.
	defaultMaxTokens = 1024

	// The recommendation prompt asks for strict JSON, so keep sampling tame.
	defaultTemperature = 0.6
	defaultTopP        = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type ClientOpts struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Client struct {
	brc  bedrockRuntimeClient
	opts ClientOpts
}

func NewClient(brc bedrockRuntimeClient, opts ClientOpts) *Client {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Client{
		brc:  brc,
		opts: opts,
	}
}

// Complete sends the prompt as a single user message and returns the first
// text block of the model's reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "model", c.opts.ModelID, "prompt_bytes", len(prompt))

	out, err := c.brc.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.opts.ModelID),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	})
	if err != nil {
		return "", fmt.Errorf("LLM_CLIENT: converse failed: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("LLM_CLIENT: unexpected converse output type %T", out.Output)
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			slog.Info("LLM_CLIENT: Response received", "content_bytes", len(text.Value))
			return text.Value, nil
		}
	}
	return "", fmt.Errorf("LLM_CLIENT: converse output has no text block")
}
