package llmclient

import (
	"context"
	"os"
	"strings"
)

// Provider identifies a model backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Credentials carries a resolved API key for one provider.
type Credentials struct {
	Provider Provider
	APIKey   string
}

// CredentialSource resolves credentials before a session may call the model.
// Implementations may prompt the user; the env source just reads keys.
type CredentialSource interface {
	GetOrResolve(ctx context.Context) (Credentials, error)
}

// EnvCredentials resolves keys from the environment, OpenAI first. Returns
// ErrNoKey when neither provider is configured.
type EnvCredentials struct{}

func (EnvCredentials) GetOrResolve(_ context.Context) (Credentials, error) {
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return Credentials{Provider: ProviderOpenAI, APIKey: key}, nil
	}
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		return Credentials{Provider: ProviderGemini, APIKey: key}, nil
	}
	return Credentials{}, ErrNoKey
}

// StaticCredentials always resolves to a fixed key.
type StaticCredentials Credentials

func (c StaticCredentials) GetOrResolve(_ context.Context) (Credentials, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return Credentials{}, ErrNoKey
	}
	return Credentials(c), nil
}

// Factory builds a streaming client for resolved credentials.
type Factory func(ctx context.Context, creds Credentials) (StreamingLLM, error)

// DefaultFactory maps each provider onto its client with default models.
func DefaultFactory(ctx context.Context, creds Credentials) (StreamingLLM, error) {
	switch creds.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, creds.APIKey, "")
	default:
		return NewOpenAIClient(creds.APIKey, "", "")
	}
}
