package captioning

import (
	"fmt"
	"os"

	"github.com/captionforge/captionforge/internal/gemini"
	"github.com/captionforge/captionforge/internal/joycaption"
	"github.com/captionforge/captionforge/internal/ollama"
	"github.com/captionforge/captionforge/internal/openai"
	"github.com/captionforge/captionforge/internal/providers"
)

// ResolveName resolves an empty provider name via the CAPTION_PROVIDER
// environment variable, falling back to ollama.
func ResolveName(name string) string {
	if name == "" {
		name = os.Getenv("CAPTION_PROVIDER")
	}
	if name == "" {
		name = "ollama"
	}
	return name
}

// ForName returns the caption provider registered under name.
func ForName(name string) (providers.Provider, error) {
	switch ResolveName(name) {
	case "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	case "joycaption":
		return joycaption.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// DefaultModel picks a sensible model for a provider when the caller did
// not specify one.
func DefaultModel(provider string) string {
	switch ResolveName(provider) {
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-1.5-flash"
	case "joycaption":
		return "descriptive"
	default:
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "qwen2.5vl"
	}
}
