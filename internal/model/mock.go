package model

import (
	"context"
	"fmt"
	"strings"
)

// MockClient provides deterministic local replies when no endpoint is configured.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	input := lastHumanLine(prompt)
	if input == "" {
		return "I am listening.", nil
	}
	return fmt.Sprintf("You said: %s", input), nil
}

func lastHumanLine(prompt string) string {
	lines := strings.Split(prompt, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "Human:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Human:"))
		}
	}
	return ""
}
