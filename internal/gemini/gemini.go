package gemini

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/captionforge/captionforge/internal/providers"
)

const requestTimeout = 5 * time.Minute

// Gemini is a provider for Google Gemini vision models.
type Gemini struct {
	// Timeout bounds one Caption call end to end; requestTimeout when zero.
	Timeout time.Duration
}

// New returns a new Gemini provider.
func New() *Gemini {
	return &Gemini{}
}

// Caption generates a caption for the image using Gemini. The call carries
// its own deadline so a hung request surfaces as a failed item instead of
// holding a batch slot.
func (g *Gemini) Caption(ctx context.Context, req providers.Request) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	imageData, err := os.ReadFile(req.ImagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)
	model.SetTemperature(float32(req.Temperature))

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(req.ImagePath)), ".")
	if format == "jpg" {
		format = "jpeg"
	}

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(format, imageData),
		genai.Text(req.Prompt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return strings.TrimSpace(string(txt)), nil
	}

	return "", fmt.Errorf("unexpected response format from Gemini")
}
