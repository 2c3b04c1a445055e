package expand

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/clausefind/internal/retry"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const promptTemplate = `You are a domain expert in insurance and legal documents.
Expand the following query by adding synonyms, related terms, and
possible alternative phrasings that may appear in the documents.
Keep it short, comma-separated, and relevant.

Example:
Input: "Does this policy cover knee surgery?"
Output: "knee surgery, orthopedic surgery, joint operation, surgical treatment for knee injury, knee replacement"

Input query:
%s
`

// LLMConfig configures an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Retry   retry.Policy
}

// LLMExpander asks a chat model for a comma-separated expansion of the query.
type LLMExpander struct {
	client *openai.Client
	model  string
	policy retry.Policy
	logger *zap.Logger
}

// NewLLMExpander creates an expander backed by a chat completions API.
func NewLLMExpander(cfg LLMConfig, logger *zap.Logger) (*LLMExpander, error) {
	if cfg.Model == "" {
		return nil, errors.New("expansion model must be set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &LLMExpander{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		policy: cfg.Retry,
		logger: logger,
	}, nil
}

// Expand returns the model's expansion of query, trimmed of whitespace and quotes.
func (x *LLMExpander) Expand(ctx context.Context, query string) (string, error) {
	expanded, err := retry.Do(ctx, x.policy, x.logger, "expand", func(ctx context.Context) (string, error) {
		resp, err := x.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: x.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, query)},
			},
		})
		if err != nil {
			return "", retry.ClassifyAPIError(err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no choices in response")
		}
		text := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"`)
		if text == "" {
			return "", errors.New("empty expansion")
		}
		return text, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExpansionFailed, err)
	}
	return expanded, nil
}
