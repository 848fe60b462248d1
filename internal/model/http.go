package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient forwards prompts to a hosted completion endpoint.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		url: strings.TrimSpace(url),
		client: &http.Client{
			// The orchestrator applies the wall-clock budget; this is a
			// backstop so an abandoned call cannot hold a connection forever.
			Timeout: 5 * time.Minute,
		},
	}
}

type completionRequest struct {
	Prompt string `json:"prompt"`
}

func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(completionRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("model endpoint status %d: %s", res.StatusCode, string(body))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		// Plain-text endpoints are accepted as-is.
		return strings.TrimSpace(string(body)), nil
	}
	return extractText(obj)
}

func extractText(obj map[string]any) (string, error) {
	for _, k := range []string{"text", "reply", "output", "message", "generated_text"} {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s), nil
			}
		}
	}
	return "", errors.New("no text field in model response")
}
