package core

import (
	"fmt"
	"strings"

	"nexus.dev/research-console/internal/store"
)

const headerMarker = "###"

// ClassifyDisplay picks the presentation for a completion: text with a
// markdown header is plain chat, anything else is shown as a research card.
func ClassifyDisplay(text string) store.MessageType {
	if strings.Contains(text, headerMarker) {
		return store.MessageChat
	}
	return store.MessageResearchCard
}

// AppendGroundingSources adds the web citations as a markdown link list.
// Sources without a URI are skipped; untitled ones are labelled "Source".
func AppendGroundingSources(text string, sources []GroundingSource) string {
	links := make([]string, 0, len(sources))
	for _, src := range sources {
		if src.URI == "" {
			continue
		}
		title := src.Title
		if title == "" {
			title = "Source"
		}
		links = append(links, fmt.Sprintf("[%s](%s)", title, src.URI))
	}
	if len(links) == 0 {
		return text
	}
	return text + "\n\n**External Lit-Review Sources:** " + strings.Join(links, ", ")
}
