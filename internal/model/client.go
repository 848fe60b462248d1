package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client bridges the chat runtime with a hosted language-model endpoint.
// The contract is plain text in, plain text out; transport and inference
// failures surface as errors.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config controls client construction.
type Config struct {
	Mode string
	URL  string
}

func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.URL) != "" {
			return NewHTTPClient(cfg.URL), nil
		}
		return NewMockClient(), nil
	case "http":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, errors.New("model endpoint URL is required for http mode")
		}
		return NewHTTPClient(cfg.URL), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported model client mode %q", cfg.Mode)
	}
}
