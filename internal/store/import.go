package store

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"nexus.dev/research-console/internal/logging"
)

// DetectArtifactType classifies an uploaded file the way the vault UI does:
// images by MIME type, CSV by MIME type or extension, everything else as text.
func DetectArtifactType(fileName, mimeType string) ArtifactType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return ArtifactImage
	case strings.HasPrefix(mimeType, "audio/"):
		return ArtifactAudio
	case mimeType == "text/csv" || strings.HasSuffix(strings.ToLower(fileName), ".csv"):
		return ArtifactCSV
	default:
		return ArtifactText
	}
}

// StripDataURL drops a "data:<mime>;base64," prefix if present.
func StripDataURL(content string) string {
	if !strings.HasPrefix(content, "data:") {
		return content
	}
	if i := strings.Index(content, ","); i >= 0 {
		return content[i+1:]
	}
	return content
}

// NewArtifactFromFile builds an artifact from raw uploaded bytes.
// Binary kinds are base64 encoded; text kinds are kept verbatim.
func NewArtifactFromFile(fileName, mimeType string, data []byte) Artifact {
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(fileName))
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = mimeType[:i]
		}
	}

	kind := DetectArtifactType(fileName, mimeType)
	content := string(data)
	if kind == ArtifactImage || kind == ArtifactAudio {
		content = base64.StdEncoding.EncodeToString(data)
	}

	return Artifact{
		ID:        uuid.NewString(),
		Name:      fileName,
		Type:      kind,
		Content:   content,
		MimeType:  mimeType,
		CreatedAt: time.Now(),
	}
}

type demoFile struct {
	name    string
	kind    ArtifactType
	content string
}

var demoFiles = []demoFile{
	{
		name: "postmortem_notes.md",
		kind: ArtifactText,
		content: "# Postmortem Notes\n\nInitial hypotheses:\n- Regression caused by increased model complexity\n" +
			"- Latency linked to context window growth\n- Tool-calling overhead underestimated\n\n" +
			"Mitigations attempted:\n- Reduced prompt size\n- Cached intermediate outputs\n" +
			"- Switched to lower-latency models for non-critical paths",
	},
	{
		name: "demo_guide.txt",
		kind: ArtifactText,
		content: "Nexus Hackathon Demo Dataset\n\nThis dataset is designed to demonstrate:\n- Persistent context memory\n" +
			"- Flash vs Pro reasoning modes\n- Causal analysis across documents and data\n\n" +
			"Suggested first prompt:\n\"Summarize what went wrong in this incident.\"\n\n" +
			"Suggested deep prompt:\n\"Using all available files, explain the primary cause of the regression and how it was resolved.\"",
	},
	{
		name:    "latency_metrics.csv",
		kind:    ArtifactCSV,
		content: "date,model,avg_latency_ms,error_rate\n2024-03-10,pro,1820,0.9\n2024-03-20,pro,2410,1.6\n2024-04-01,flash,420,0.4",
	},
	{
		name: "ai_incident_summary.md",
		kind: ArtifactText,
		content: "# AI Incident Summary\n\nBetween March and April 2024, multiple AI-assisted systems exhibited performance " +
			"regressions following model updates. Symptoms included higher latency, increased error rates, and degraded output quality.\n\n" +
			"This dataset documents observed failures, logs, and mitigation attempts.",
	},
	{
		name:    "system_changelog.csv",
		kind:    ArtifactCSV,
		content: "date,change\n2024-03-15,Increased thinking budget\n2024-03-22,Enabled tool calling\n2024-03-28,Introduced Flash routing",
	},
}

// ImportDemoArtifacts stores the bundled incident dataset and returns what was stored.
func (s *SQLiteStore) ImportDemoArtifacts() ([]Artifact, error) {
	base := time.Now()
	imported := make([]Artifact, 0, len(demoFiles))
	for i, f := range demoFiles {
		a := Artifact{
			ID:        fmt.Sprintf("demo-%d-%s", base.UnixMilli(), uuid.NewString()[:8]),
			Name:      f.name,
			Type:      f.kind,
			Content:   f.content,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := s.PutArtifact(&a); err != nil {
			return imported, fmt.Errorf("failed to import demo artifact %s: %w", f.name, err)
		}
		logging.Infof("Artifact mounted: %s", f.name)
		imported = append(imported, a)
	}
	return imported, nil
}

// ImportDirectory stores every regular file directly inside dir as an artifact.
// Unreadable files are logged and skipped.
func (s *SQLiteStore) ImportDirectory(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read import directory %s: %w", dir, err)
	}

	count := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Warnf("Skipping %s: %v", path, err)
			continue
		}
		a := NewArtifactFromFile(entry.Name(), "", data)
		if err := s.PutArtifact(&a); err != nil {
			logging.Warnf("Failed to store %s: %v", path, err)
			continue
		}
		count++
	}
	logging.Infof("Imported %d artifacts from %s", count, dir)
	return count, nil
}
