package core

import (
	"context"
	"time"
)

// Phase is the cosmetic research stage shown while a turn runs.
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhasePlanning   Phase = "PLANNING"
	PhaseCollection Phase = "COLLECTION"
	PhaseAnalysis   Phase = "ANALYSIS"
	PhaseSynthesis  Phase = "SYNTHESIS"
)

type AgentID string

const (
	AgentOrchestrator AgentID = "ORCHESTRATOR"
	AgentLiterature   AgentID = "LIT_AGENT"
	AgentCritic       AgentID = "CRITIC"
	AgentScribe       AgentID = "SCRIBE"
	AgentSecurity     AgentID = "SEC_OPA"
)

type AgentStatus string

const (
	AgentIdle   AgentStatus = "IDLE"
	AgentActive AgentStatus = "ACTIVE"
	AgentError  AgentStatus = "ERROR"
)

type AgentState struct {
	ID     AgentID     `json:"id"`
	Name   string      `json:"name"`
	Status AgentStatus `json:"status"`
	Load   int         `json:"load"`
}

func DefaultAgents() []AgentState {
	return []AgentState{
		{ID: AgentOrchestrator, Name: "Orchestrator", Status: AgentIdle},
		{ID: AgentLiterature, Name: "Literature", Status: AgentIdle},
		{ID: AgentCritic, Name: "Critic", Status: AgentIdle},
		{ID: AgentScribe, Name: "Scribe", Status: AgentIdle},
		{ID: AgentSecurity, Name: "Security", Status: AgentIdle},
	}
}

// PhaseDelays are the fixed waits before COLLECTION, ANALYSIS and SYNTHESIS.
type PhaseDelays [3]time.Duration

type phaseStep struct {
	phase Phase
	from  AgentID
	to    AgentID
	load  int
	log   string
}

var researchSteps = [3]phaseStep{
	{phase: PhaseCollection, from: AgentOrchestrator, to: AgentLiterature, load: 95, log: "[LIT] Ingesting groundings..."},
	{phase: PhaseAnalysis, from: AgentLiterature, to: AgentCritic, load: 90, log: "[CRIT] Cross-verifying sources..."},
	{phase: PhaseSynthesis, from: AgentCritic, to: AgentScribe, load: 100, log: "[SCRIBE] Finalizing research memo..."},
}

// Sequencer drives the presentation-only phase machine
// IDLE → PLANNING → COLLECTION → ANALYSIS → SYNTHESIS → IDLE.
// Transitions happen on timers, not on any real sub-task completing.
type Sequencer struct {
	delays PhaseDelays
}

func NewSequencer(delays PhaseDelays) *Sequencer {
	return &Sequencer{delays: delays}
}

// BeginScreening enters PLANNING with the security agent scanning the input.
func (q *Sequencer) BeginScreening(s *Session) {
	s.setSecurity(SecurityScanning)
	s.updateAgent(AgentSecurity, AgentActive, 100)
	s.setPhase(PhasePlanning)
	s.AddLog("Pre-flight security validation...", LogSec)
}

func (q *Sequencer) Blocked(s *Session) {
	s.updateAgent(AgentSecurity, AgentError, 0)
	s.setSecurity(SecurityAlert)
	s.AddLog("PROTOCOL_VIOLATION: Directive blocked.", LogError)
}

func (q *Sequencer) Cleared(s *Session) {
	s.setSecurity(SecuritySafe)
	s.updateAgent(AgentSecurity, AgentIdle, 0)
	s.updateAgent(AgentOrchestrator, AgentActive, 80)
	s.AddLog("[ORCH] Decomposing objective...", LogKernel)
}

// RunResearchPhases walks COLLECTION, ANALYSIS and SYNTHESIS on the configured delays.
func (q *Sequencer) RunResearchPhases(ctx context.Context, s *Session) error {
	for i, step := range researchSteps {
		if err := sleepContext(ctx, q.delays[i]); err != nil {
			return err
		}
		s.setPhase(step.phase)
		s.updateAgent(step.from, AgentIdle, 0)
		s.updateAgent(step.to, AgentActive, step.load)
		s.AddLog(step.log, LogKernel)
	}
	return nil
}

// Reset returns the session to IDLE with every agent idle, whatever phase was active.
func (q *Sequencer) Reset(s *Session) {
	s.setPhase(PhaseIdle)
	s.resetAgents()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
