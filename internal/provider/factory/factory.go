package factory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"studyprep/internal/config"
	"studyprep/internal/provider"
	claudeProvider "studyprep/internal/provider/claude"
	geminiProvider "studyprep/internal/provider/gemini"
	nvidiaProvider "studyprep/internal/provider/nvidia"
	openaiProvider "studyprep/internal/provider/openai"
)

const (
	defaultHTTPTimeout     = 60 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// registration order keeps alias conflicts deterministic
var providerOrder = []string{"openai", "claude", "nvidia", "gemini"}

// RegisterConfiguredProviders constructs providers from configuration and stores them in the registry.
func RegisterConfiguredProviders(ctx context.Context, cfg config.Config, registry *provider.Registry) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	configured := cfg.Providers.Configured()
	for _, name := range providerOrder {
		pc, ok := configured[name]
		if !ok {
			continue
		}

		p, err := build(ctx, name, pc, newHTTPClient(defaultHTTPTimeout))
		if err != nil {
			return fmt.Errorf("initialise %s provider: %w", name, err)
		}
		if err := registry.RegisterProvider(ctx, p, pc.Aliases); err != nil {
			return fmt.Errorf("register %s provider: %w", name, err)
		}
	}

	return nil
}

func build(ctx context.Context, name string, pc config.ProviderConfig, client *http.Client) (provider.Provider, error) {
	switch name {
	case "openai":
		return openaiProvider.New(name, pc, client)
	case "claude":
		return claudeProvider.New(name, pc, client)
	case "nvidia":
		return nvidiaProvider.New(name, pc, client)
	case "gemini":
		return geminiProvider.New(ctx, name, pc, client)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
