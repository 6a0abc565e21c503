package store

import "time"

type ArtifactType string

const (
	ArtifactText  ArtifactType = "text"
	ArtifactImage ArtifactType = "image"
	ArtifactCSV   ArtifactType = "csv"
	// ArtifactAudio is accepted and stored but never sent to the model.
	ArtifactAudio ArtifactType = "audio"
)

func (t ArtifactType) Valid() bool {
	switch t {
	case ArtifactText, ArtifactImage, ArtifactCSV, ArtifactAudio:
		return true
	}
	return false
}

// Artifact is a stored context document. For images Content holds base64
// without the data-URL prefix; for text and csv it holds the raw text.
type Artifact struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      ArtifactType `json:"type"`
	Content   string       `json:"content"`
	MimeType  string       `json:"mime_type,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type MessageType string

const (
	MessageChat          MessageType = "chat"
	MessageResearchCard  MessageType = "research_card"
	MessageSecurityAlert MessageType = "security_alert"
)

// Message is one conversation turn entry. Messages live in session memory only.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
}
