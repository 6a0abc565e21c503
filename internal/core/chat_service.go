package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"nexus.dev/research-console/internal/logging"
	"nexus.dev/research-console/internal/store"
)

var (
	ErrEmptyDirective = errors.New("directive is empty")
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")
)

const orchestratorInstruction = `
You are the NEXUS Research Orchestrator. Your role is to coordinate a distributed multi-agent system to solve high-complexity research problems.

AGENT ROLES YOU COORDINATE:
1. Literature Agent: Scans web groundings and Memory_Vault for methodology and raw facts.
2. Analysis Critic: Finds contradictions, weak evidence, and surfacing assumptions.
3. Synthesis Scribe: Drafts actionable research artifacts.

BEHAVIORAL RULES:
- If a user asks a complex question, identify if the answer requires an "Atomic Finding" (a Research Card) or a "Full Synthesis" (Narrative).
- Always distinguish between "Empirical Evidence" (from artifacts) and "Inferred Hypothesis."
- Surface contradictions. If one source says X and another says Y, highlight the conflict explicitly.
- Use structured Markdown.
- Keep a calm, analytical, and authoritative tone.

FORMATTING:
- Use ### headers for synthesis.
- Use bold text for key terms.
- Citation format: [Verified via Artifact: {name}].
`

// ArtifactLister is the read side of the artifact vault used to build context.
type ArtifactLister interface {
	GetAllArtifacts() ([]store.Artifact, error)
}

// TurnResult carries the messages a turn appended and the pre-flight verdict.
type TurnResult struct {
	Messages []store.Message `json:"messages"`
	Security SecurityResult  `json:"security"`
}

// turn is the per-request context handed from stage to stage.
type turn struct {
	session   *Session
	directive string
	mode      ReasoningMode
	artifacts []store.Artifact
	result    TurnResult
}

type ChatService struct {
	sessions   *SessionManager
	artifacts  ArtifactLister
	completer  Completer
	classifier *Classifier
	sequencer  *Sequencer
	models     ModelConfig
}

func NewChatService(sessions *SessionManager, artifacts ArtifactLister, completer Completer, classifier *Classifier, sequencer *Sequencer, models ModelConfig) *ChatService {
	return &ChatService{
		sessions:   sessions,
		artifacts:  artifacts,
		completer:  completer,
		classifier: classifier,
		sequencer:  sequencer,
		models:     models,
	}
}

func (s *ChatService) Sessions() *SessionManager {
	return s.sessions
}

// PostMessage runs one turn: classify the directive, block it or assemble the
// artifact context, make the single completion call and format the reply.
// Steps run strictly in order and only one turn per session may be in flight.
// The turn is not retried; a completion failure becomes a visible error message.
func (s *ChatService) PostMessage(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDirective
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.tryBeginTurn() {
		return nil, ErrTurnInProgress
	}
	defer func() {
		s.sequencer.Reset(sess)
		sess.endTurn()
	}()

	t := &turn{
		session:   sess,
		directive: text,
		mode:      sess.Mode(),
		artifacts: s.snapshotArtifacts(sess),
	}

	s.sequencer.BeginScreening(sess)
	t.result.Security = s.classifier.Classify(ctx, text)
	if t.result.Security.Blocked() {
		s.sequencer.Blocked(sess)
		t.emit(store.RoleModel, RejectionMessage, store.MessageSecurityAlert)
		return &t.result, nil
	}
	s.sequencer.Cleared(sess)
	t.emit(store.RoleUser, text, store.MessageChat)

	reply, err := s.research(ctx, t)
	if err != nil {
		sess.AddLog(fmt.Sprintf("Loop failure: %v", err), LogError)
		errText := fmt.Sprintf("### ⚠️ SYSTEM_ERROR\n\nResearch loop aborted at final synthesis: %v", err)
		t.emit(store.RoleModel, errText, ClassifyDisplay(errText))
		return &t.result, nil
	}

	t.emit(store.RoleModel, reply, ClassifyDisplay(reply))
	sess.AddLog("[KERNEL] Task cycle successful.", LogKernel)
	return &t.result, nil
}

// snapshotArtifacts fixes the turn's context. Artifacts added later appear in the next turn.
func (s *ChatService) snapshotArtifacts(sess *Session) []store.Artifact {
	artifacts, err := s.artifacts.GetAllArtifacts()
	if err != nil {
		logging.Warnf("Failed to load artifacts for session %s, proceeding without context: %v", sess.ID, err)
		return nil
	}
	return artifacts
}

func (s *ChatService) research(ctx context.Context, t *turn) (string, error) {
	if err := s.sequencer.RunResearchPhases(ctx, t.session); err != nil {
		return "", err
	}

	opts := RequestFor(t.mode, s.models)
	resp, err := s.completer.Complete(ctx, CompletionRequest{
		Model:             opts.Model,
		Blocks:            AssembleContext(t.artifacts, t.directive),
		SystemInstruction: orchestratorInstruction,
		GoogleSearch:      opts.GoogleSearch,
		ThinkingBudget:    opts.ThinkingBudget,
	})
	if err != nil {
		return "", err
	}
	return AppendGroundingSources(resp.Text, resp.Sources), nil
}

func (t *turn) emit(role store.Role, text string, kind store.MessageType) {
	msg := store.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
		Type:      kind,
	}
	t.session.appendMessage(msg)
	t.result.Messages = append(t.result.Messages, msg)
}
