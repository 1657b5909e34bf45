package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studyprep/internal/models"
	"studyprep/internal/provider"
)

const defaultMaxTokens = 2048

// Router dispatches requests to the provider serving the requested model.
type Router struct {
	registry     *provider.Registry
	defaultModel string
}

// New constructs a router backed by the provided registry. defaultModel is used
// when a GenerateRequest names no model.
func New(registry *provider.Registry, defaultModel string) *Router {
	return &Router{
		registry:     registry,
		defaultModel: defaultModel,
	}
}

// Chat routes a chat request to the configured provider.
func (r *Router) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, models.Model, error) {
	modelInfo, providerImpl, err := r.registry.LookupModel(req.Model)
	if err != nil {
		return nil, models.Model{}, err
	}

	sanitisedReq := req
	sanitisedReq.Model = modelInfo.ID
	sanitisedReq.Options = cloneOptions(req.Options)

	resp, err := providerImpl.Chat(ctx, sanitisedReq)
	if err != nil {
		return nil, models.Model{}, fmt.Errorf("provider %s chat request: %w", providerImpl.Name(), err)
	}
	return resp, modelInfo, nil
}

// Generate sends a single prompt with optional history and returns the reply text.
// An empty reply is not an error here; callers decide what it means.
func (r *Router) Generate(ctx context.Context, req models.GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("prompt must not be empty")
	}

	model := req.Model
	if model == "" {
		model = r.defaultModel
	}

	messages := make([]models.Message, 0, len(req.History)+2)
	if s := strings.TrimSpace(req.System); s != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: s})
	}
	messages = append(messages, trimHistory(req.History)...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: req.Prompt})

	options := map[string]any{provider.OptionMaxTokens: defaultMaxTokens}
	if req.MaxTokens > 0 {
		options[provider.OptionMaxTokens] = req.MaxTokens
	}
	if req.Temperature != nil {
		options[provider.OptionTemperature] = *req.Temperature
	}
	if req.JSON {
		options[provider.OptionResponseFormat] = map[string]any{"type": "json_object"}
	}

	resp, _, err := r.Chat(ctx, models.ChatRequest{
		Model:    model,
		Messages: messages,
		Options:  options,
	})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// trimHistory drops blank turns, unknown roles and any assistant turns that would
// open the conversation, since some providers require a user turn first.
func trimHistory(history []models.Message) []models.Message {
	out := make([]models.Message, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			continue
		}
		if len(out) == 0 && m.Role != models.RoleUser {
			continue
		}
		out = append(out, m)
	}
	return out
}

func cloneOptions(options map[string]any) map[string]any {
	if len(options) == 0 {
		return nil
	}
	out := make(map[string]any, len(options))
	for k, v := range options {
		out[k] = v
	}
	return out
}
