package nvidia

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"studyprep/internal/config"
	"studyprep/internal/models"
	"studyprep/internal/provider"
	claudeProvider "studyprep/internal/provider/claude"
	openaiProvider "studyprep/internal/provider/openai"
)

// Provider routes NVIDIA-hosted models to the adapter matching each model's api_style.
type Provider struct {
	name     string
	models   []models.Model
	adapters map[string]provider.Provider
}

// New constructs a provider that delegates to protocol-specific adapters.
func New(name string, cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}

	byStyle := make(map[string][]config.ModelConfig)
	p := &Provider{
		name:     name,
		adapters: make(map[string]provider.Provider),
	}

	for _, model := range cfg.Models {
		style := strings.TrimSpace(strings.ToLower(model.APIStyle))
		switch style {
		case config.APIStyleOpenAI, config.APIStyleClaude:
		default:
			return nil, fmt.Errorf("model %s: unsupported api_style %q", model.ID, model.APIStyle)
		}
		model.APIStyle = style
		byStyle[style] = append(byStyle[style], model)
		p.models = append(p.models, models.Model{ID: model.ID, Provider: name, APIStyle: style})
	}

	for style, list := range byStyle {
		sub := cfg
		sub.BaseURL = baseURL
		sub.Models = list

		var (
			adapter provider.Provider
			err     error
		)
		switch style {
		case config.APIStyleOpenAI:
			adapter, err = openaiProvider.New(name, sub, client)
		case config.APIStyleClaude:
			adapter, err = claudeProvider.New(name, sub, client)
		}
		if err != nil {
			return nil, fmt.Errorf("initialize %s adapter: %w", style, err)
		}
		for _, model := range list {
			p.adapters[model.ID] = adapter
		}
	}

	return p, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) ListModels(ctx context.Context) ([]models.Model, error) {
	result := make([]models.Model, len(p.models))
	copy(result, p.models)
	return result, nil
}

func (p *Provider) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	adapter, ok := p.adapters[req.Model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrUnknownModel, req.Model)
	}
	return adapter.Chat(ctx, req)
}
