package openai

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const providerName = "openai"

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	logger *zap.Logger,
) *OpenAIClient {
	return &OpenAIClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// Provider returns the provider name
func (c *OpenAIClient) Provider() string {
	return providerName
}

// Complete sends a single chat completion request
func (c *OpenAIClient) Complete(ctx context.Context, in core.CompletionRequest) (*core.Completion, error) {
	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	temperature := in.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	// Temperature is omitted from the request body when zero, which the API
	// treats as 1.0
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: in.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: in.Prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if in.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, &core.ProviderError{
			Provider:   providerName,
			StatusCode: statusCode(err),
			Err:        fmt.Errorf("failed to create chat completion: %w", err),
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &core.ProviderError{
			Provider: providerName,
			Err:      errors.New("empty response from OpenAI"),
		}
	}

	usage := core.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if resp.Usage.PromptTokensDetails != nil {
		usage.CachedTokens = resp.Usage.PromptTokensDetails.CachedTokens
	}

	c.logger.Debug("OpenAI completion received",
		zap.String("request_id", resp.ID),
		zap.String("model", resp.Model),
		zap.Int("total_tokens", usage.TotalTokens))

	model := resp.Model
	if model == "" {
		model = c.modelName
	}

	return &core.Completion{
		Text:      resp.Choices[0].Message.Content,
		Model:     model,
		RequestID: resp.ID,
		Usage:     usage,
	}, nil
}

// statusCode extracts the HTTP status from an OpenAI error, or 0 when the
// request never produced a response
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
