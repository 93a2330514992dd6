package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/captionforge/captionforge/internal/providers"
)

// DefaultBaseURL is the OpenAI-compatible endpoint of a local Ollama.
const DefaultBaseURL = "http://localhost:11434/v1"

const requestTimeout = 5 * time.Minute

// Ollama is a provider for a local Ollama server. It speaks the
// OpenAI-compatible chat completions API so any vision model Ollama
// serves (llava, qwen2.5vl, ...) works unchanged.
type Ollama struct {
	client *http.Client
}

// New returns a new Ollama provider.
func New() *Ollama {
	return &Ollama{
		client: &http.Client{Timeout: requestTimeout},
	}
}

// BaseURL resolves the endpoint to use: explicit endpoint, OLLAMA_URL, or
// the local default.
func BaseURL(endpoint string) string {
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/")
	}
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return DefaultBaseURL
}

// Caption generates a caption for the image using a vision chat request.
func (o *Ollama) Caption(ctx context.Context, req providers.Request) (string, error) {
	imageData, err := os.ReadFile(req.ImagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)

	requestBody, err := json.Marshal(map[string]interface{}{
		"model": req.Model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": req.Prompt},
					{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
				},
			},
		},
		"temperature": req.Temperature,
		"stream":      false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := BaseURL(req.Endpoint) + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from Ollama")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// ConnectionStatus reports whether a server answered and which models it
// serves.
type ConnectionStatus struct {
	Connected bool     `json:"connected"`
	Models    []string `json:"models"`
	Error     string   `json:"error,omitempty"`
}

// TestConnection checks an Ollama server and lists its models. Model
// listing uses the native /api/tags route, so the /v1 suffix of an
// OpenAI-compatible endpoint is stripped first. Connection failures are
// reported in the status, not as an error.
func TestConnection(ctx context.Context, endpoint string) ConnectionStatus {
	base := BaseURL(endpoint)
	base = strings.TrimRight(strings.TrimSuffix(base, "/v1"), "/")
	url := base + "/api/tags"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return ConnectionStatus{Error: err.Error()}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return ConnectionStatus{Error: fmt.Sprintf("connection failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ConnectionStatus{Error: fmt.Sprintf("ollama returned status: %d", resp.StatusCode)}
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return ConnectionStatus{Error: fmt.Sprintf("failed to decode response: %v", err)}
	}

	status := ConnectionStatus{Connected: true}
	for _, m := range tags.Models {
		status.Models = append(status.Models, m.Name)
	}
	return status
}
