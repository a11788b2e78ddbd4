// Package ai issues single completion requests to the configured model provider.
package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"uicraft/internal/config"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// systemPrompt directs the model to keep artifacts inside tagged fences.
const systemPrompt = "You are a helpful assistant that generates valid, " +
	"production-quality React JSX and CSS. Return code inside markdown " +
	"blocks like ```jsx``` and ```css``` only."

const defaultMaxTokens = 1024

// Client sends prompts to a chat model and returns the raw reply text.
type Client struct {
	chatModel model.BaseChatModel
	provider  string
}

// NewClient builds the chat model for the configured provider. The provider
// credentials come from process configuration, never from callers.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	provider := cfg.Generation.Provider
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", provider)
	}
	maxTokens := cfg.Generation.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, openaiConfig(provCfg, maxTokens))
	case "claude":
		chatModel, err = claude.NewChatModel(ctx, claudeConfig(provCfg, maxTokens))
	case "gemini":
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if cerr != nil {
			return nil, fmt.Errorf("gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, geminiConfig(client, provCfg, maxTokens))
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}

	return &Client{chatModel: chatModel, provider: provider}, nil
}

// Every provider request carries the same output bound.

func openaiConfig(provCfg config.ProviderConfig, maxTokens int) *openai.ChatModelConfig {
	return &openai.ChatModelConfig{
		BaseURL:   provCfg.BaseURL,
		Model:     provCfg.Model,
		APIKey:    provCfg.APIKey,
		MaxTokens: &maxTokens,
	}
}

func claudeConfig(provCfg config.ProviderConfig, maxTokens int) *claude.Config {
	var baseURLPtr *string
	if provCfg.BaseURL != "" {
		baseURLPtr = &provCfg.BaseURL
	}
	return &claude.Config{
		APIKey:    provCfg.APIKey,
		Model:     provCfg.Model,
		BaseURL:   baseURLPtr,
		MaxTokens: maxTokens,
	}
}

func geminiConfig(client *genai.Client, provCfg config.ProviderConfig, maxTokens int) *gemini.Config {
	return &gemini.Config{
		Client:    client,
		Model:     provCfg.Model,
		MaxTokens: &maxTokens,
	}
}

// Complete sends exactly one request carrying the fixed system instruction
// and the user's prompt, returning the model's reply verbatim. Failures are
// never retried here.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	}
	reply, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		log.Printf("completion request failed (provider=%s): %v", c.provider, err)
		return "", &CompletionError{Stage: StageRemote, Err: err}
	}
	if reply == nil || strings.TrimSpace(reply.Content) == "" {
		log.Printf("completion returned empty reply (provider=%s)", c.provider)
		return "", &CompletionError{Stage: StageEnvelope, Err: fmt.Errorf("empty reply content")}
	}
	return reply.Content, nil
}
