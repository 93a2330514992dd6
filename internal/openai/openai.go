package openai

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

const defaultURL = "https://api.openai.com/v1/chat/completions"

// OpenAI is a provider for the OpenAI chat completions API, or any server
// exposing the same vision request shape.
type OpenAI struct {
	client *http.Client
}

// New returns a new OpenAI provider.
func New() *OpenAI {
	return &OpenAI{
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Caption generates a caption for the image using a vision chat request.
func (o *OpenAI) Caption(ctx context.Context, req providers.Request) (string, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	imageData, err := os.ReadFile(req.ImagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)

	url := defaultURL
	if req.Endpoint != "" {
		url = strings.TrimRight(req.Endpoint, "/") + "/chat/completions"
	}

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
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

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
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
