package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"manga-canvas-server/modules/common/config"
)

// NewClient - Genai 클라이언트 생성 (모든 서비스에서 공용)
func NewClient(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Genai client: %w", err)
	}
	return client, nil
}
