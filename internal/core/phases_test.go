package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func drainPhases(events <-chan Event) []Phase {
	var phases []Phase
	for {
		select {
		case ev := <-events:
			if ev.Kind == EventPhase {
				phases = append(phases, ev.Data.(Phase))
			}
		default:
			return phases
		}
	}
}

func TestSequencer_FullCycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(ModePro)
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	q := NewSequencer(PhaseDelays{})
	q.BeginScreening(s)
	q.Cleared(s)
	require.NoError(t, q.RunResearchPhases(context.Background(), s))

	state := s.Snapshot()
	assert.Equal(t, PhaseSynthesis, state.Phase)
	assert.Equal(t, SecuritySafe, state.Security)
	for _, a := range state.Agents {
		if a.ID == AgentScribe {
			assert.Equal(t, AgentActive, a.Status)
			assert.Equal(t, 100, a.Load)
		} else {
			assert.Equal(t, AgentIdle, a.Status, "agent %s", a.ID)
		}
	}

	q.Reset(s)
	assert.Equal(t, []Phase{PhasePlanning, PhaseCollection, PhaseAnalysis, PhaseSynthesis, PhaseIdle}, drainPhases(events))
	for _, a := range s.Snapshot().Agents {
		assert.Equal(t, AgentIdle, a.Status)
		assert.Equal(t, 0, a.Load)
	}
}

func TestSequencer_BlockedMarksSecurityAgent(t *testing.T) {
	s := newSession(ModeFlash)
	q := NewSequencer(PhaseDelays{})

	q.BeginScreening(s)
	q.Blocked(s)

	state := s.Snapshot()
	assert.Equal(t, SecurityAlert, state.Security)
	for _, a := range state.Agents {
		if a.ID == AgentSecurity {
			assert.Equal(t, AgentError, a.Status)
		}
	}
	assert.Equal(t, "PROTOCOL_VIOLATION: Directive blocked.", s.Logs()[0].Message)
}

func TestSequencer_WaitsConfiguredDelays(t *testing.T) {
	s := newSession(ModeFlash)
	q := NewSequencer(PhaseDelays{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond})

	start := time.Now()
	require.NoError(t, q.RunResearchPhases(context.Background(), s))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSequencer_ContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newSession(ModeFlash)
	q := NewSequencer(PhaseDelays{time.Hour, time.Hour, time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.RunResearchPhases(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, PhaseIdle, s.Phase())
}
