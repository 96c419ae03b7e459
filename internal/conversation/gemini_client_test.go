package conversation

import (
	"context"
	"testing"
)

func TestNewGeminiLLMClientRequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiLLMClient(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestGeminiLLMClientRequiresMessages(t *testing.T) {
	client := &GeminiLLMClient{modelID: defaultGeminiModel}
	if _, err := client.Complete(context.Background(), LLMRequest{}); err == nil {
		t.Fatalf("expected error for empty request")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close without client: %v", err)
	}
}
