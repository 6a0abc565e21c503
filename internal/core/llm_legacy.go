package core

import (
	"context"
	"fmt"
	"strings"

	legacy "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"nexus.dev/research-console/internal/logging"
)

// LegacyLLMService is the completion backend on github.com/google/generative-ai-go.
// It has no web search tool or thinking budget; both are dropped with a warning.
type LegacyLLMService struct {
	client *legacy.Client
}

func NewLegacyLLMService(ctx context.Context, apiKey string) (*LegacyLLMService, error) {
	client, err := legacy.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LegacyLLMService{client: client}, nil
}

func (s *LegacyLLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logging.Warnf("Error closing GenAI client: %v", err)
		} else {
			logging.Infof("GenAI client closed.")
		}
	}
}

func (s *LegacyLLMService) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := s.client.GenerativeModel(req.Model)
	if strings.TrimSpace(req.SystemInstruction) != "" {
		model.SystemInstruction = &legacy.Content{
			Parts: []legacy.Part{legacy.Text(req.SystemInstruction)},
		}
	}
	if req.ResponseMIMEType != "" {
		model.ResponseMIMEType = req.ResponseMIMEType
	}
	if req.GoogleSearch || req.ThinkingBudget != nil {
		logging.Warnf("legacy Gemini SDK: web search and thinking budget are not supported, sending plain request to %s", req.Model)
	}

	resp, err := model.GenerateContent(ctx, toLegacyParts(req.Blocks)...)
	if err != nil {
		return nil, fmt.Errorf("gemini GenerateContent failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &CompletionResponse{}, nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(legacy.Text); ok {
			text.WriteString(string(txt))
		} else {
			logging.Debugf("Gemini response part was not text: %T", part)
		}
	}
	return &CompletionResponse{Text: text.String()}, nil
}

func toLegacyParts(blocks []Block) []legacy.Part {
	parts := make([]legacy.Part, 0, len(blocks))
	for _, b := range blocks {
		if b.Inline != nil {
			parts = append(parts, legacy.Blob{MIMEType: b.Inline.MIMEType, Data: b.Inline.Data})
			continue
		}
		parts = append(parts, legacy.Text(b.Text))
	}
	return parts
}
