package core

import (
	"testing"

	legacy "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestToGenAIParts(t *testing.T) {
	parts := toGenAIParts([]Block{
		TextBlock("intro"),
		{Inline: &InlineData{MIMEType: "image/png", Data: []byte{1, 2}}},
	})

	require.Len(t, parts, 2)
	assert.Equal(t, "intro", parts[0].Text)
	assert.Nil(t, parts[0].InlineData)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{1, 2}, parts[1].InlineData.Data)
}

func TestBuildGenerateConfig(t *testing.T) {
	t.Run("pro", func(t *testing.T) {
		budget := int32(4096)
		cfg := buildGenerateConfig(CompletionRequest{SystemInstruction: "sys", ThinkingBudget: &budget})
		require.NotNil(t, cfg.SystemInstruction)
		assert.Equal(t, "sys", cfg.SystemInstruction.Parts[0].Text)
		require.NotNil(t, cfg.ThinkingConfig)
		assert.Equal(t, int32(4096), *cfg.ThinkingConfig.ThinkingBudget)
		assert.Empty(t, cfg.Tools)
	})

	t.Run("flash", func(t *testing.T) {
		cfg := buildGenerateConfig(CompletionRequest{GoogleSearch: true})
		assert.Nil(t, cfg.SystemInstruction)
		assert.Nil(t, cfg.ThinkingConfig)
		require.Len(t, cfg.Tools, 1)
		assert.NotNil(t, cfg.Tools[0].GoogleSearch)
	})

	t.Run("json classifier", func(t *testing.T) {
		cfg := buildGenerateConfig(CompletionRequest{ResponseMIMEType: "application/json"})
		assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	})
}

func TestGroundingSources(t *testing.T) {
	assert.Nil(t, groundingSources(nil))
	assert.Nil(t, groundingSources(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{Title: "Docs", URI: "https://docs.example"}},
					{},
					nil,
				},
			},
		}},
	}
	assert.Equal(t, []GroundingSource{{Title: "Docs", URI: "https://docs.example"}}, groundingSources(resp))
}

func TestToLegacyParts(t *testing.T) {
	parts := toLegacyParts([]Block{
		TextBlock("hello"),
		{Inline: &InlineData{MIMEType: "image/jpeg", Data: []byte("jpg")}},
	})

	require.Len(t, parts, 2)
	assert.Equal(t, legacy.Text("hello"), parts[0])
	assert.Equal(t, legacy.Blob{MIMEType: "image/jpeg", Data: []byte("jpg")}, parts[1])
}
