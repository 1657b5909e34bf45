package models

// Roles used across providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversational turn in the provider-neutral schema.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the provider-neutral representation of a chat call.
type ChatRequest struct {
	Model    string
	Messages []Message
	Options  map[string]any
}

// ChatResponse captures a provider reply.
type ChatResponse struct {
	Message      Message
	Usage        Usage
	FinishReason string
	ID           string
}

// GenerateRequest is what study operations hand to the router: a system prompt,
// optional prior turns and the prompt for this call.
type GenerateRequest struct {
	// Model overrides the configured default model when set.
	Model   string
	System  string
	History []Message
	Prompt  string
	// JSON asks the provider for a JSON-only response where it supports one.
	JSON        bool
	Temperature *float64
	MaxTokens   int
}

// Usage records token accounting information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Model identifies a known model with provider metadata.
type Model struct {
	ID       string
	Provider string
	APIStyle string
}
