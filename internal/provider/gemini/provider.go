package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"studyprep/internal/config"
	"studyprep/internal/models"
	"studyprep/internal/provider"
)

const roleModel = "model"

// Provider serves chat requests through the Gemini API.
type Provider struct {
	name   string
	cli    *genai.Client
	models []models.Model
}

// New builds a Gemini provider. BaseURL is optional and mostly useful for tests and proxies.
func New(ctx context.Context, name string, cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	modelsList := make([]models.Model, 0, len(cfg.Models))
	for _, model := range cfg.Models {
		if model.APIStyle != config.APIStyleGemini {
			return nil, fmt.Errorf("gemini provider %q received model %q with unsupported api_style %q", name, model.ID, model.APIStyle)
		}
		modelsList = append(modelsList, models.Model{
			ID:       model.ID,
			Provider: name,
			APIStyle: model.APIStyle,
		})
	}

	headers := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: client,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
			Headers: headers,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Provider{name: name, cli: cli, models: modelsList}, nil
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) ListModels(ctx context.Context) ([]models.Model, error) {
	result := make([]models.Model, len(p.models))
	copy(result, p.models)
	return result, nil
}

func (p *Provider) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	contents, genCfg, err := buildContents(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.cli.Models.GenerateContent(ctx, req.Model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("gemini response did not include candidates")
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}

	out := &models.ChatResponse{
		ID:           resp.ResponseID,
		Message:      models.Message{Role: models.RoleAssistant, Content: text.String()},
		FinishReason: string(cand.FinishReason),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = models.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func buildContents(req models.ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	var (
		contents    []*genai.Content
		systemParts []*genai.Part
	)

	for _, msg := range req.Messages {
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}
		switch msg.Role {
		case models.RoleSystem:
			systemParts = append(systemParts, &genai.Part{Text: text})
		case models.RoleUser:
			contents = append(contents, &genai.Content{Role: models.RoleUser, Parts: []*genai.Part{{Text: text}}})
		case models.RoleAssistant:
			contents = append(contents, &genai.Content{Role: roleModel, Parts: []*genai.Part{{Text: text}}})
		default:
			return nil, nil, fmt.Errorf("gemini provider does not support role %q", msg.Role)
		}
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("gemini request requires at least one user message")
	}

	genCfg := &genai.GenerateContentConfig{}
	if len(systemParts) > 0 {
		genCfg.SystemInstruction = &genai.Content{Parts: systemParts}
	}
	if provider.WantsJSON(req.Options) {
		genCfg.ResponseMIMEType = "application/json"
	}
	if v, ok := provider.IntOption(req.Options, provider.OptionMaxTokens); ok && v > 0 {
		genCfg.MaxOutputTokens = int32(v)
	}
	if v, ok := provider.FloatOption(req.Options, provider.OptionTemperature); ok {
		temp := float32(v)
		genCfg.Temperature = &temp
	}
	if v, ok := provider.FloatOption(req.Options, provider.OptionTopP); ok {
		topP := float32(v)
		genCfg.TopP = &topP
	}
	if stops, ok := provider.StringSliceOption(req.Options, provider.OptionStop); ok {
		genCfg.StopSequences = stops
	}

	return contents, genCfg, nil
}
