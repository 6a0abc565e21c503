package core

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
	"nexus.dev/research-console/internal/logging"
)

// CompletionRequest is everything the completion service needs for one call.
type CompletionRequest struct {
	Model             string
	Blocks            []Block
	SystemInstruction string
	GoogleSearch      bool
	ThinkingBudget    *int32
	ResponseMIMEType  string
}

// GroundingSource is a web citation attached to a completion.
type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type CompletionResponse struct {
	Text    string
	Sources []GroundingSource
}

// Completer is the hosted model boundary, treated as a black box.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// LLMService talks to the Gemini API through google.golang.org/genai.
type LLMService struct {
	client *genai.Client
}

func NewLLMService(ctx context.Context, apiKey string) (*LLMService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client}, nil
}

func (s *LLMService) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: toGenAIParts(req.Blocks),
	}}

	resp, err := s.client.Models.GenerateContent(ctx, req.Model, contents, buildGenerateConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini GenerateContent failed: %w", err)
	}

	out := &CompletionResponse{Text: resp.Text(), Sources: groundingSources(resp)}
	logging.Debugf("Gemini completion: model=%s response_len=%d sources=%d", req.Model, len(out.Text), len(out.Sources))
	return out, nil
}

func toGenAIParts(blocks []Block) []*genai.Part {
	parts := make([]*genai.Part, 0, len(blocks))
	for _, b := range blocks {
		if b.Inline != nil {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: b.Inline.MIMEType, Data: b.Inline.Data}})
			continue
		}
		parts = append(parts, &genai.Part{Text: b.Text})
	}
	return parts
}

func buildGenerateConfig(req CompletionRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: req.ResponseMIMEType,
	}
	if strings.TrimSpace(req.SystemInstruction) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	if req.GoogleSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.ThinkingBudget != nil {
		budget := *req.ThinkingBudget
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}
	return cfg
}

// groundingSources collects web citations from the first candidate.
func groundingSources(resp *genai.GenerateContentResponse) []GroundingSource {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var sources []GroundingSource
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		sources = append(sources, GroundingSource{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return sources
}
