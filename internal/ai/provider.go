package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/serenity-spa/spachat/internal/model"
)

var ErrUnavailable = errors.New("ai provider unavailable")

// maxEmbedChars bounds text sent to the embedding endpoint. Both the live
// query path and bulk ingestion go through the same truncation.
const maxEmbedChars = 8000

type IAIProvider interface {
	Name() string
	// Configured reports whether required credentials are present. A provider
	// without them is a misconfiguration, surfaced before any external call.
	Configured() bool
	Chat(ctx context.Context, modelName string, messages []model.ChatMessage, temperature float64) (model.ChatMessage, error)
	Embed(ctx context.Context, modelName string, text string, taskType string) ([]float32, error)
}

// IChatter is a provider bound to a model and temperature.
type IChatter interface {
	Configured() bool
	Chat(ctx context.Context, messages []model.ChatMessage) (model.ChatMessage, error)
}

// IEmbedder is a provider bound to an embedding model.
type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type chatter struct {
	provider    IAIProvider
	model       string
	temperature float64
}

func NewChatter(p IAIProvider, modelName string, temperature float64) IChatter {
	return &chatter{provider: p, model: modelName, temperature: temperature}
}

func (c *chatter) Configured() bool {
	return c.provider.Configured()
}

func (c *chatter) Chat(ctx context.Context, messages []model.ChatMessage) (model.ChatMessage, error) {
	return c.provider.Chat(ctx, c.model, messages, c.temperature)
}

type embedder struct {
	provider IAIProvider
	model    string
}

func NewEmbedder(p IAIProvider, modelName string) IEmbedder {
	return &embedder{provider: p, model: modelName}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if len(text) > maxEmbedChars {
		text = text[:maxEmbedChars]
	}
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *embedder) ModelName() string {
	return e.model
}

type ProviderFactory func(args interface{}) (IAIProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IAIProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
