package core

import (
	"encoding/base64"
	"fmt"

	"nexus.dev/research-console/internal/store"
)

const (
	contextOpenMarker  = "--- BEGIN SECURE CONTEXT MEMORY ---\n"
	contextCloseMarker = "--- END SECURE CONTEXT MEMORY ---\n"
)

// InlineData is binary content sent to the model alongside text.
type InlineData struct {
	MIMEType string
	Data     []byte
}

// Block is one unit of request content: either text or inline binary data.
type Block struct {
	Text   string
	Inline *InlineData
}

func TextBlock(text string) Block {
	return Block{Text: text}
}

// AssembleContext turns the artifact list and the user directive into request
// blocks. Block order follows artifact order and the directive is always last.
// Nothing is deduplicated or truncated. Audio artifacts, and images without a
// MIME type, are not emitted.
func AssembleContext(artifacts []store.Artifact, directive string) []Block {
	blocks := make([]Block, 0, len(artifacts)*2+3)

	if len(artifacts) > 0 {
		blocks = append(blocks, TextBlock(contextOpenMarker))
		for _, art := range artifacts {
			switch {
			case art.Type == store.ArtifactImage && art.MimeType != "":
				blocks = append(blocks,
					Block{Inline: &InlineData{MIMEType: art.MimeType, Data: decodeImage(art.Content)}},
					TextBlock(fmt.Sprintf("[Context Object: %s]", art.Name)),
				)
			case art.Type == store.ArtifactText || art.Type == store.ArtifactCSV:
				blocks = append(blocks, TextBlock(fmt.Sprintf("[Document: %s]\n%s\n---", art.Name, art.Content)))
			}
		}
		blocks = append(blocks, TextBlock(contextCloseMarker))
	}

	return append(blocks, TextBlock(directive))
}

// decodeImage returns the decoded payload, or the raw bytes if content is not base64.
func decodeImage(content string) []byte {
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return []byte(content)
	}
	return data
}
