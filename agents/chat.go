package agents

import (
	"context"
	"errors"
	"strings"

	"github.com/bt-bridge/voicelive-avatar/shared"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const chatSystemPrompt = "You are a helpful voice assistant. Answer briefly in " +
	"natural spoken language, at most three sentences, no markup or lists."

type ChatConfig struct {
	APIKey     string
	BaseURL    string // optional, for Azure or gateway deployments
	Deployment string // model or deployment name
}

// Chat is a stateless chat-completions backend. It has no thread store, so
// conversation memory rides entirely on the prior-utterance hints.
type Chat struct {
	logger     shared.LoggerAdapter
	client     openai.Client
	deployment string
}

func NewChat(logger shared.LoggerAdapter, cfg ChatConfig) (*Chat, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if cfg.APIKey == "" {
		return nil, shared.ErrNoAPIKey
	}
	if cfg.Deployment == "" {
		return nil, errors.New("no deployment name provided")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Chat{
		logger:     logger,
		client:     openai.NewClient(opts...),
		deployment: cfg.Deployment,
	}, nil
}

func (c *Chat) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Chat) ProcessQuery(ctx context.Context, query string) (string, error) {
	return c.complete(ctx, chatSystemPrompt, query, 300)
}

func (c *Chat) GetContext(ctx context.Context, query, _ string, priorUtterances []string) (string, error) {
	reply, err := c.complete(ctx, chatSystemPrompt, retrievalPrompt(query, priorUtterances), 200)
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", nil
	}
	c.logger.Debug("retrieved chat context", zap.Int("chars", len(reply)))
	return contextHeader + reply, nil
}

// CreateThread is a no-op; the chat backend keeps no server-side state.
func (c *Chat) CreateThread(context.Context) (string, error) { return "", nil }

// DeleteThread is a no-op.
func (c *Chat) DeleteThread(context.Context, string) error { return nil }
