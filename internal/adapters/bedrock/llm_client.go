package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/llm-lead-router/internal/core"
	"go.uber.org/zap"
)

const (
	providerName     = "bedrock"
	anthropicVersion = "bedrock-2023-05-31"
)

// InvokeModelAPI is the subset of the Bedrock runtime client used here
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of the LLMClient interface using Amazon Bedrock
type BedrockClient struct {
	client      InvokeModelAPI
	modelID     string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	Temperature      float32         `json:"temperature"`
}

type claudeResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	} `json:"usage"`
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client InvokeModelAPI,
	modelID string,
	maxTokens int,
	temperature float32,
	logger *zap.Logger,
) *BedrockClient {
	return &BedrockClient{
		client:      client,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// Provider returns the provider name
func (c *BedrockClient) Provider() string {
	return providerName
}

// Complete invokes an Anthropic Claude model through the Bedrock messages API
func (c *BedrockClient) Complete(ctx context.Context, in core.CompletionRequest) (*core.Completion, error) {
	if !c.isAnthropicModel() {
		return nil, &core.ProviderError{
			Provider:   providerName,
			StatusCode: 400,
			Err:        fmt.Errorf("unsupported Bedrock model %s", c.modelID),
		}
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temperature := in.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	prompt := in.Prompt
	if in.JSONMode {
		prompt += "\n\nRespond only with the JSON object and nothing else."
	}

	payload, err := json.Marshal(claudeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		System:           in.System,
		Messages:         []claudeMessage{{Role: "user", Content: prompt}},
		Temperature:      temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, &core.ProviderError{
			Provider:   providerName,
			StatusCode: statusCode(err),
			Err:        fmt.Errorf("failed to invoke Bedrock model: %w", err),
		}
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
		return nil, &core.ProviderError{
			Provider: providerName,
			Err:      fmt.Errorf("failed to unmarshal Claude response: %w", err),
		}
	}

	var sb strings.Builder
	for _, part := range claudeResp.Content {
		if part.Type == "" || part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, &core.ProviderError{
			Provider: providerName,
			Err:      errors.New("empty response from Bedrock"),
		}
	}

	usage := core.Usage{
		PromptTokens:     claudeResp.Usage.InputTokens,
		CompletionTokens: claudeResp.Usage.OutputTokens,
		TotalTokens:      claudeResp.Usage.InputTokens + claudeResp.Usage.OutputTokens,
		CachedTokens:     claudeResp.Usage.CacheReadInputTokens,
	}

	c.logger.Debug("Bedrock completion received",
		zap.String("request_id", claudeResp.ID),
		zap.String("model", c.modelID),
		zap.Int("total_tokens", usage.TotalTokens))

	return &core.Completion{
		Text:      sb.String(),
		Model:     c.modelID,
		RequestID: claudeResp.ID,
		Usage:     usage,
	}, nil
}

// isAnthropicModel checks if the model is an Anthropic Claude model, including
// cross-region inference profiles such as us.anthropic.claude-*
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.Contains(c.modelID, "anthropic.claude")
}

// statusCode extracts the HTTP status from an AWS SDK error
func statusCode(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}
