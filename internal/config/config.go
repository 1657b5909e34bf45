package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	APIStyleOpenAI = "openai"
	APIStyleClaude = "claude"
	APIStyleGemini = "gemini"

	StoreMemory   = "memory"
	StorePostgres = "postgres"

	defaultAITimeout = 15 * time.Second
	defaultCacheSize = 256
	defaultCacheTTL  = 10 * time.Minute
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	AI        AIConfig        `yaml:"ai"`
	Providers ProvidersConfig `yaml:"providers"`
	Store     StoreConfig     `yaml:"store"`
	Admin     AdminConfig     `yaml:"admin"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
	// RateLimit is the per-client request rate in requests per second. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AIConfig tunes calls to the content-generation providers.
type AIConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	DefaultModel string        `yaml:"default_model"`
	RepairJSON   bool          `yaml:"repair_json"`
	Cache        CacheConfig   `yaml:"cache"`
}

// CacheConfig sizes the generated-text cache. A negative size disables it.
type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// ProvidersConfig catalogues configured upstream providers. At least one is required.
type ProvidersConfig struct {
	OpenAI *ProviderConfig `yaml:"openai"`
	Claude *ProviderConfig `yaml:"claude"`
	NVIDIA *ProviderConfig `yaml:"nvidia"`
	Gemini *ProviderConfig `yaml:"gemini"`
}

// ProviderConfig captures authentication and routing info for a provider.
type ProviderConfig struct {
	APIKey  string            `yaml:"api_key"`
	BaseURL string            `yaml:"base_url"`
	Models  []ModelConfig     `yaml:"models"`
	Headers Headers           `yaml:"headers"`
	Aliases map[string]string `yaml:"aliases"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// ModelConfig describes a model exposed by a provider.
type ModelConfig struct {
	ID       string `yaml:"id"`
	APIStyle string `yaml:"api_style"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AdminConfig protects the admin console. An empty token disables the admin routes.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// Load reads YAML configuration from disk, expands ${VAR} references from the
// environment (and a .env file when present), applies defaults and validates the result.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return Config{}, fmt.Errorf("config file %q: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AI.Timeout == 0 {
		c.AI.Timeout = defaultAITimeout
	}
	if c.AI.Cache.Size == 0 {
		c.AI.Cache.Size = defaultCacheSize
	}
	if c.AI.Cache.TTL == 0 {
		c.AI.Cache.TTL = defaultCacheTTL
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreMemory
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	}
	if c.AI.Timeout < 0 {
		return fmt.Errorf("ai.timeout must be positive, got %s", c.AI.Timeout)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn must be provided for driver %q", StorePostgres)
		}
	default:
		return fmt.Errorf("store.driver %q must be %q or %q", c.Store.Driver, StoreMemory, StorePostgres)
	}

	providers := c.Providers.Configured()
	if len(providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	known := make(map[string]bool)
	for name, provider := range providers {
		if err := validateProvider(name, provider); err != nil {
			return err
		}
		for _, model := range provider.Models {
			known[model.ID] = true
		}
		for alias := range provider.Aliases {
			known[alias] = true
		}
	}

	if c.AI.DefaultModel == "" {
		return fmt.Errorf("ai.default_model must be provided")
	}
	if !known[c.AI.DefaultModel] {
		return fmt.Errorf("ai.default_model %q is not served by any configured provider", c.AI.DefaultModel)
	}

	return nil
}

// Configured returns the providers present in the configuration keyed by name.
func (p ProvidersConfig) Configured() map[string]ProviderConfig {
	out := make(map[string]ProviderConfig)
	if p.OpenAI != nil {
		out["openai"] = *p.OpenAI
	}
	if p.Claude != nil {
		out["claude"] = *p.Claude
	}
	if p.NVIDIA != nil {
		out["nvidia"] = *p.NVIDIA
	}
	if p.Gemini != nil {
		out["gemini"] = *p.Gemini
	}
	return out
}

func validateProvider(name string, provider ProviderConfig) error {
	if strings.TrimSpace(provider.APIKey) == "" {
		return fmt.Errorf("provider %s: api_key must be provided", name)
	}
	if name != "gemini" && strings.TrimSpace(provider.BaseURL) == "" {
		return fmt.Errorf("provider %s: base_url must be provided", name)
	}
	if len(provider.Models) == 0 {
		return fmt.Errorf("provider %s: at least one model must be configured", name)
	}

	for _, model := range provider.Models {
		if strings.TrimSpace(model.ID) == "" {
			return fmt.Errorf("provider %s: model id must not be empty", name)
		}
		if err := validateAPIStyle(name, model.APIStyle); err != nil {
			return err
		}
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}

	for alias, target := range provider.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("provider %s: alias name must not be empty", name)
		}
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("provider %s: alias %q target must not be empty", name, alias)
		}
	}

	return nil
}

func validateAPIStyle(providerName, style string) error {
	var allowed []string
	switch providerName {
	case "openai":
		allowed = []string{APIStyleOpenAI}
	case "claude":
		allowed = []string{APIStyleClaude}
	case "nvidia":
		allowed = []string{APIStyleOpenAI, APIStyleClaude}
	case "gemini":
		allowed = []string{APIStyleGemini}
	}
	for _, a := range allowed {
		if style == a {
			return nil
		}
	}
	return fmt.Errorf("provider %s: model api_style %q must be one of %q", providerName, style, allowed)
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
