// Package gemini implements the generation.Client interface using the
// Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/sagelearn/sage-api/internal/config"
	"github.com/sagelearn/sage-api/internal/generation"
)

// GeminiClient implements the generation.Client interface using the Gemini
// API. Responses are requested as JSON; failures map onto the generation
// package's sentinel errors, and no retry is attempted here: a failed
// generation surfaces as the owning job's terminal error.
type GeminiClient struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

// Ensure GeminiClient satisfies the interface.
var _ generation.Client = (*GeminiClient)(nil)

// NewGeminiClient creates a new GeminiClient from the LLM configuration.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*GeminiClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name is required", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: cfg.ModelName,
		logger:    logger.With("component", "gemini_client"),
	}, nil
}

// Generate produces text for a single input under the given system
// instructions.
func (c *GeminiClient) Generate(ctx context.Context, input, instructions string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(input, genai.RoleUser),
	}
	return c.generate(ctx, contents, instructions)
}

// GenerateFromHistory produces text for an ordered conversation history
// under the given system instructions.
func (c *GeminiClient) GenerateFromHistory(ctx context.Context, history []generation.Message, instructions string) (string, error) {
	if err := generation.ValidateHistory(history); err != nil {
		return "", err
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == generation.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}

	return c.generate(ctx, contents, instructions)
}

func (c *GeminiClient) generate(ctx context.Context, contents []*genai.Content, instructions string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if instructions != "" {
		cfg.SystemInstruction = genai.NewContentFromText(instructions, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, cfg)
	if err != nil {
		c.logger.Error("generation request failed",
			"model", c.modelName,
			"error", err)
		return "", fmt.Errorf("%w: %v", generation.ErrTransport, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
		}
		return "", generation.ErrEmptyResponse
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}

	if b.Len() == 0 {
		return "", generation.ErrEmptyResponse
	}

	return b.String(), nil
}
