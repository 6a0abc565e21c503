package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"nexus.dev/research-console/internal/store"
)

func TestClassifyDisplay(t *testing.T) {
	tests := []struct {
		name string
		text string
		want store.MessageType
	}{
		{"header", "### Synthesis\nbody", store.MessageChat},
		{"header mid text", "intro\n\n### Findings", store.MessageChat},
		{"deeper header contains marker", "#### Detail", store.MessageChat},
		{"h2 only", "## Finding", store.MessageResearchCard},
		{"plain", "Latency rose 32% after the budget change.", store.MessageResearchCard},
		{"empty", "", store.MessageResearchCard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDisplay(tt.text))
		})
	}
}

func TestAppendGroundingSources(t *testing.T) {
	t.Run("no sources", func(t *testing.T) {
		assert.Equal(t, "answer", AppendGroundingSources("answer", nil))
	})

	t.Run("sources without uri are skipped", func(t *testing.T) {
		assert.Equal(t, "answer", AppendGroundingSources("answer", []GroundingSource{{Title: "x"}}))
	})

	t.Run("link list", func(t *testing.T) {
		got := AppendGroundingSources("answer", []GroundingSource{
			{Title: "Paper", URI: "https://a.example/p"},
			{URI: "https://b.example"},
		})
		assert.Equal(t, "answer\n\n**External Lit-Review Sources:** [Paper](https://a.example/p), [Source](https://b.example)", got)
	})
}
