package providers

import (
	"context"
)

// Request carries everything a backend needs to caption one image.
type Request struct {
	ImagePath   string
	Model       string
	Prompt      string
	Endpoint    string
	Temperature float64
}

// Provider is the contract for a caption backend. Caption returns the
// generated caption text or an error describing why this single image
// failed; a provider error never aborts a batch.
type Provider interface {
	Caption(ctx context.Context, req Request) (string, error)
}

// DefaultPrompt asks for booru-style training tags rather than prose.
const DefaultPrompt = "Describe this image as a comma-separated list of short booru-style tags " +
	"suitable for training an image generation model. Output only the tags, " +
	"most important first, no numbering and no extra commentary."
